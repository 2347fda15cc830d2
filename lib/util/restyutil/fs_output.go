package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Output receives one file per exchange made by a dumped client.
type Output interface {
	Write(id string, contents string)
}

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput empties dir and writes every exchange into it.
func NewFilesystemOutput(dir string) FilesystemOutput {
	os.RemoveAll(dir)
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		panic(err)
	}
	return FilesystemOutput{directory: dir}
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}

// Dump writes the request line, the status and the body of every response
// the client receives to out.
func Dump(client *resty.Client, out Output) {
	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&counter, 1)

		var b strings.Builder
		fmt.Fprintf(&b, "%s %s\n", res.Request.Method, res.Request.URL)
		fmt.Fprintf(&b, "%s (%s)\n\n", res.Status(), res.Time())
		for key, values := range res.Header() {
			fmt.Fprintf(&b, "%s: %s\n", key, strings.Join(values, ", "))
		}
		b.WriteString("\n")
		b.Write(res.Body())

		out.Write(fmt.Sprintf("%03d.txt", id), b.String())
		return nil
	})
}
