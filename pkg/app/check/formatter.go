package check

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// FormatOutput writes check results to w according to output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable prints one diagnostic line per finding followed by a summary
func formatTable(w io.Writer, response *Response) error {
	for _, f := range response.Findings {
		if _, err := fmt.Fprintln(w, f.Message()); err != nil {
			return err
		}
	}
	if len(response.Findings) > 0 {
		fmt.Fprintln(w)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Image:\t%s\n", response.ImagePath)
	fmt.Fprintf(tw, "Volume:\t%s (joliet: %t)\n", response.Volume.ID, response.Volume.Joliet)
	fmt.Fprintf(tw, "Fingerprint:\t%s\n", response.Volume.Fingerprint)
	fmt.Fprintf(tw, "Mapfile:\t%s\n", response.MapfilePath)
	state := fmt.Sprintf("0x%X %s", response.Mapfile.CurrentPos, response.Mapfile.CurrentStatus)
	if response.Mapfile.CurrentPass != nil {
		state += fmt.Sprintf(" (pass %d)", *response.Mapfile.CurrentPass)
	}
	fmt.Fprintf(tw, "Rescue state:\t%s\n", state)
	fmt.Fprintf(tw, "Bad ranges:\t%d of %d blocks, %d bytes\n",
		response.Mapfile.BadIntervals, response.Mapfile.Blocks, response.Mapfile.BadBytes)
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nChecked %d entries, %d bad in %v\n",
		response.EntriesChecked, len(response.Findings), response.CheckTime)
	return err
}

// formatJSON formats results as JSON
func formatJSON(w io.Writer, response *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// formatYAML formats results as YAML
func formatYAML(w io.Writer, response *Response) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(response)
}
