package check

import (
	"github.com/deploymenttheory/go-ddcheck/pkg/app"
)

const (
	isoExtension     = ".iso"
	mapfileExtension = ".map"
)

// Validate checks that the request names exactly one image and one mapfile.
// --prefix covers both and excludes --iso and --map.
func (r *Request) Validate() error {
	if r.Prefix != "" {
		if r.ISOPath != "" {
			return app.NewError(app.ErrCodeInvalidInput, "--prefix and --iso cannot be used together", nil)
		}
		if r.MapPath != "" {
			return app.NewError(app.ErrCodeInvalidInput, "--prefix and --map cannot be used together", nil)
		}
		return nil
	}
	if r.ISOPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "one of --prefix or --iso is required", nil)
	}
	if r.MapPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "one of --prefix or --map is required", nil)
	}
	return nil
}

// Resolve returns the image and mapfile paths. Call Validate first.
func (r *Request) Resolve() (isoPath, mapPath string) {
	if r.Prefix != "" {
		return r.Prefix + isoExtension, r.Prefix + mapfileExtension
	}
	return r.ISOPath, r.MapPath
}
