package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/kbukum/relay/httpclient"
)

// writeResponse prints resp's body, preceded by its status line and headers
// when include is set.
func writeResponse(w io.Writer, resp *httpclient.Response, include bool) error {
	if include {
		if _, err := fmt.Fprintf(w, "HTTP %s\n", statusLine(resp)); err != nil {
			return err
		}
		names := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := fmt.Fprintf(w, "%s: %s\n", name, resp.Headers.Get(name)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	switch data := resp.Data.(type) {
	case nil:
		return nil
	case string:
		_, err := io.WriteString(w, data)
		return err
	case []byte:
		_, err := w.Write(data)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
}

func statusLine(resp *httpclient.Response) string {
	if resp.StatusText != "" {
		return resp.StatusText
	}
	return fmt.Sprint(resp.Status)
}
