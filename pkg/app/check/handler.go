package check

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/deploymenttheory/go-ddcheck/internal/badsectors"
	"github.com/deploymenttheory/go-ddcheck/internal/device"
	"github.com/deploymenttheory/go-ddcheck/internal/iso9660"
	"github.com/deploymenttheory/go-ddcheck/internal/logger"
	"github.com/deploymenttheory/go-ddcheck/internal/parsers/mapfile"
	"github.com/deploymenttheory/go-ddcheck/internal/types"
	"github.com/deploymenttheory/go-ddcheck/pkg/app"
)

// Handle processes a check request: the mapfile is parsed into a bad-sector
// index and every entry of the image is tested against it.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, err
	}
	isoPath, mapPath := req.Resolve()

	// 2. Build the bad-sector index
	m, err := loadMapfile(ctx, mapPath)
	if err != nil {
		return nil, err
	}
	index, err := badsectors.FromMapFile(m)
	if err != nil {
		return nil, app.NewError(app.ErrCodeIndexBuild, fmt.Sprintf("indexing mapfile %s", mapPath), err)
	}
	ctx.Log("Bad-sector index built", map[string]interface{}{
		"blocks":        len(m.Blocks),
		"bad_intervals": index.Len(),
		"bad_bytes":     index.TotalBadBytes(),
	})
	if m.CurrentState.Status != types.CurrentStatusFinished {
		logger.LogWarn("Rescue did not finish; untried areas are reported as bad", map[string]interface{}{
			"mapfile": mapPath,
			"status":  m.CurrentState.Status.String(),
		})
	}

	// 3. Open the image
	dev, err := device.OpenImage(isoPath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeImageAccess, fmt.Sprintf("opening image %s", isoPath), err)
	}
	defer dev.Close()

	img, err := iso9660.Open(dev, iso9660.Options{PreferJoliet: ctx.PreferJoliet})
	if err != nil {
		return nil, app.NewError(app.ErrCodeImageAccess, fmt.Sprintf("reading image %s", isoPath), err)
	}
	ctx.Log("Image opened", map[string]interface{}{
		"path":      isoPath,
		"volume_id": img.VolumeID(),
		"joliet":    img.Joliet(),
	})

	response := &Response{
		ImagePath:   isoPath,
		MapfilePath: mapPath,
		Volume: VolumeInfo{
			ID:          img.VolumeID(),
			Fingerprint: img.Fingerprint().String(),
			Joliet:      img.Joliet(),
			BlockSize:   img.BlockSize(),
		},
		Mapfile:  summarize(m, index),
		Findings: []Finding{},
	}

	// 4. Walk the directory tree
	var mu sync.Mutex
	err = img.WalkConcurrent(ctx, ctx.WalkConcurrency, func(e iso9660.Entry) error {
		finding, bad := TestBad(index, e)
		mu.Lock()
		defer mu.Unlock()
		response.EntriesChecked++
		if bad {
			response.Findings = append(response.Findings, finding)
		}
		return nil
	})
	if err != nil {
		return nil, app.NewError(app.ErrCodeImageWalk, fmt.Sprintf("walking image %s", isoPath), err)
	}

	sort.Slice(response.Findings, func(i, j int) bool {
		return response.Findings[i].Path < response.Findings[j].Path
	})
	response.CheckTime = time.Since(startTime)

	reads, bytesRead := dev.Stats()
	ctx.Log("Check completed", map[string]interface{}{
		"entries":    response.EntriesChecked,
		"findings":   len(response.Findings),
		"reads":      reads,
		"bytes_read": bytesRead,
		"duration":   response.CheckTime.String(),
	})

	return response, nil
}

// TestBad reports whether the extent of e contains a bad sector, returning
// the finding for the first overlapping bad range.
func TestBad(index *badsectors.BadSectors, e iso9660.Entry) (Finding, bool) {
	bad, ok := index.ContainsBadSector(e.Extent.Start, e.Extent.End)
	if !ok {
		return Finding{}, false
	}
	return Finding{
		Path:        e.Path,
		Identifier:  e.Identifier,
		IsDir:       e.IsDir,
		ExtentStart: e.Extent.Start,
		ExtentEnd:   e.Extent.End,
		BadStart:    bad.Start,
		BadEnd:      bad.End,
	}, true
}

func loadMapfile(ctx *app.Context, path string) (*types.MapFile, error) {
	data, err := device.ReadMapfile(path, ctx.MaxMapfileSize)
	if err != nil {
		return nil, app.NewError(app.ErrCodeMapfileRead, fmt.Sprintf("reading mapfile %s", path), err)
	}
	ctx.Log("Mapfile loaded", map[string]interface{}{
		"path":        path,
		"bytes":       len(data),
		"compression": string(device.DetectCompression(path)),
	})

	m, err := mapfile.Parse(data)
	if err != nil {
		return nil, app.NewError(app.ErrCodeMapfileParse, fmt.Sprintf("parsing mapfile %s", path), err)
	}
	return m, nil
}

func summarize(m *types.MapFile, index *badsectors.BadSectors) MapfileInfo {
	info := MapfileInfo{
		CurrentPos:    uint64(m.CurrentState.Pos),
		CurrentStatus: m.CurrentState.Status.String(),
		Blocks:        len(m.Blocks),
		BadIntervals:  index.Len(),
		BadBytes:      index.TotalBadBytes(),
	}
	if m.CurrentState.HasPass() {
		pass := uint64(*m.CurrentState.Pass)
		info.CurrentPass = &pass
	}
	return info
}
