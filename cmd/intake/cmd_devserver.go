package main

import (
	"fmt"

	"virtualcare/internal/devserver"

	"github.com/spf13/cobra"
)

var (
	devAddr         string
	devFailUpload   int
	devFailComplete int
)

// devserverCmd runs the local stand-in for the intake endpoints
var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Serve local stand-ins for the upload, completion and error endpoints",
	Long: `Starts an HTTP server implementing the three intake endpoints so the
wizard can be exercised end to end. Point endpoints.base_url at it.

Failures can be injected to try the error paths:
  intake devserver --fail-upload 500`,
	RunE: runDevServer,
}

func init() {
	devserverCmd.Flags().StringVar(&devAddr, "addr", "", "Listen address (default: devserver.addr)")
	devserverCmd.Flags().IntVar(&devFailUpload, "fail-upload", 0, "Answer uploads with this HTTP status")
	devserverCmd.Flags().IntVar(&devFailComplete, "fail-complete", 0, "Answer completions with this HTTP status")
}

func runDevServer(cmd *cobra.Command, args []string) error {
	if devAddr != "" {
		cfg.DevServer.Addr = devAddr
	}
	srv, err := devserver.New(cfg)
	if err != nil {
		return err
	}
	srv.FailWith(devserver.EndpointUpload, devFailUpload)
	srv.FailWith(devserver.EndpointComplete, devFailComplete)

	fmt.Fprintf(cmd.OutOrStdout(), "Serving intake endpoints on %s (uploads in %s)\n", cfg.DevServer.Addr, cfg.DevServer.UploadDir)
	return srv.ListenAndServe(cmd.Context())
}
