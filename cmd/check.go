package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-ddcheck/internal/device"
	"github.com/deploymenttheory/go-ddcheck/internal/logger"
	"github.com/deploymenttheory/go-ddcheck/pkg/app"
	"github.com/deploymenttheory/go-ddcheck/pkg/app/check"
)

type checkFlags struct {
	prefix  string
	iso     string
	mapfile string
}

func runCheck(cmd *cobra.Command, flags *checkFlags) error {
	config, err := device.LoadCheckConfig()
	if err != nil {
		return err
	}

	if err := logger.InitLogger(logger.LoggerConfig{
		Debug:     config.Debug,
		LogFormat: config.LogFormat,
		LogFile:   config.LogFile,
	}); err != nil {
		return err
	}
	defer logger.Sync()

	// Create application context
	ctx := app.NewContext()
	base, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer stop()
	ctx.Context = base
	ctx.Out = cmd.OutOrStdout()
	ctx.OutputFormat = config.OutputFormat
	ctx.Verbose = config.Verbose
	ctx.PreferJoliet = config.PreferJoliet
	ctx.WalkConcurrency = config.WalkConcurrency
	ctx.MaxMapfileSize = config.MaxMapfileSize

	request := &check.Request{
		Prefix:  flags.prefix,
		ISOPath: flags.iso,
		MapPath: flags.mapfile,
	}

	// Handle the request through application layer
	response, err := check.Handle(ctx, request)
	if err != nil {
		logger.LogError("Check failed", err, map[string]interface{}{
			"code": app.ErrorCode(err),
		})
		return err
	}

	// Format and display results
	if err := check.FormatOutput(ctx.Out, response, ctx.OutputFormat); err != nil {
		return app.NewError(app.ErrCodeOutputFailure, "writing report", err)
	}
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
