// Command dropzone resolves dropped files and directories from local folders,
// Google Drive or S3 buckets, classifies them against a selection policy and
// prints the resulting change event.
package main

import (
	"io"
	"os"

	"github.com/Ning0612/Dropzone/internal/logger"
)

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute runs the command line with explicit streams
func execute(args []string, in io.Reader, out, errOut io.Writer) error {
	defer logger.Shutdown()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.Execute()
}
