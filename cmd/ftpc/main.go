// Command ftpc performs a single operation against an FTP server in passive
// mode and exits.
//
// Usage:
//
//	ftpc [flags] ls    ftp://[user[:password]@]host[:port]/path
//	ftpc [flags] mkdir ftp://host/path
//	ftpc [flags] rm    ftp://host/path
//	ftpc [flags] rmdir ftp://host/path
//	ftpc [flags] cp    SOURCE DEST
//	ftpc [flags] mv    SOURCE DEST
//
// For cp and mv exactly one operand is an ftp:// URL. If it is the first,
// the file is downloaded; otherwise it is uploaded.
//
// Exit status is 0 on success, 1 when the server or the connection failed,
// 2 on usage or configuration errors and 3 on local file errors.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newApp(os.Stdout, os.Stderr, afero.NewOsFs()).run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
