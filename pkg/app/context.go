package app

import (
	"context"
	"io"
	"os"

	"github.com/deploymenttheory/go-ddcheck/internal/logger"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Out          io.Writer

	// Image and mapfile handling
	PreferJoliet    bool
	WalkConcurrency int
	MaxMapfileSize  int64
}

// NewContext creates a new application context writing to stdout
func NewContext() *Context {
	return &Context{
		Context:         context.Background(),
		OutputFormat:    "table",
		Out:             os.Stdout,
		PreferJoliet:    true,
		WalkConcurrency: 1,
	}
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// Log records a progress message; it is logged at info level when verbose
// and at debug level otherwise.
func (c *Context) Log(message string, fields map[string]interface{}) {
	if c.Verbose {
		logger.LogInfo(message, fields)
		return
	}
	logger.LogDebug(message, fields)
}
