package remotefs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
)

// sniffLen is the number of bytes mimetype needs for detection
const sniffLen = 3072

type uploadOperation struct {
	Op                   string `json:"op"`
	Path                 string `json:"path"`
	Name                 string `json:"name"`
	Size                 int64  `json:"size,omitempty"`
	Overwrite            bool   `json:"overwrite,omitempty"`
	DedupeName           bool   `json:"dedupe_name,omitempty"`
	CreateMissingParents bool   `json:"create_missing_parents,omitempty"`
	ShortcutTo           string `json:"shortcut_to,omitempty"`
}

// Upload sends files as one multipart request. progress is called with
// the share of bytes handed to the transport so far.
func (c *Client) Upload(ctx context.Context, req UploadRequest, progress ProgressFunc) ([]UploadedItem, error) {
	if len(req.Files) == 0 {
		return nil, nil
	}

	counter := newProgressCounter(totalSize(req.Files), progress)
	fields := make([]*resty.MultipartField, 0, len(req.Files))
	operations := make([]uploadOperation, 0, len(req.Files))
	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()

	for _, f := range req.Files {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("upload: open %s: %w", f.RelPath, err)
		}
		closers = append(closers, rc)

		reader, contentType := sniff(rc)
		fields = append(fields, &resty.MultipartField{
			Param:       "file",
			FileName:    f.RelPath,
			ContentType: contentType,
			Reader:      counter.wrap(reader),
		})
		operations = append(operations, uploadOperation{
			Op:                   "write",
			Path:                 req.Destination,
			Name:                 f.RelPath,
			Size:                 f.Size,
			Overwrite:            req.Overwrite,
			DedupeName:           req.DedupeName,
			CreateMissingParents: req.CreateMissingParents,
		})
	}

	ops, err := json.Marshal(operations)
	if err != nil {
		return nil, fmt.Errorf("upload: encode operations: %w", err)
	}

	var items []UploadedItem
	err = c.call(ctx, "upload", func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetMultipartFormData(map[string]string{
				"operation":                 string(ops),
				"original_client_socket_id": req.Originator,
				"file_count":                strconv.Itoa(len(req.Files)),
			}).
			SetMultipartFields(fields...).
			SetResult(&items).
			Post("/up")
	})
	if err != nil {
		return nil, err
	}
	counter.finish()
	return items, nil
}

// Write creates or replaces a single file from memory
func (c *Client) Write(ctx context.Context, req WriteRequest) (types.Item, error) {
	reader, contentType := sniff(bytes.NewReader(req.Data))
	op, err := json.Marshal([]uploadOperation{{
		Op:                   "write",
		Path:                 req.Destination,
		Name:                 req.Name,
		Size:                 int64(len(req.Data)),
		Overwrite:            req.Overwrite,
		DedupeName:           req.DedupeName,
		CreateMissingParents: req.CreateMissingParents,
		ShortcutTo:           req.ShortcutTo,
	}})
	if err != nil {
		return types.Item{}, fmt.Errorf("write: encode operation: %w", err)
	}

	var items []types.Item
	err = c.call(ctx, "write", func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetMultipartFormData(map[string]string{
				"operation":                 string(op),
				"original_client_socket_id": req.Originator,
			}).
			SetMultipartField("file", req.Name, contentType, reader).
			SetResult(&items).
			Post("/up")
	})
	if err != nil {
		return types.Item{}, err
	}
	if len(items) == 0 {
		return types.Item{}, fmt.Errorf("write: empty response")
	}
	return items[0], nil
}

// sniff detects the content type without consuming the reader
func sniff(r io.Reader) (io.Reader, string) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, _ := br.Peek(sniffLen)
	return br, mimetype.Detect(head).String()
}

func totalSize(files []UploadFile) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

// progressCounter turns bytes read from upload bodies into percentages
type progressCounter struct {
	mu       sync.Mutex
	total    int64
	read     int64
	last     int
	progress ProgressFunc
}

func newProgressCounter(total int64, progress ProgressFunc) *progressCounter {
	return &progressCounter{total: total, last: -1, progress: progress}
}

func (p *progressCounter) wrap(r io.Reader) io.Reader {
	return &countingReader{r: r, counter: p}
}

func (p *progressCounter) add(n int) {
	if p.progress == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	p.read += int64(n)
	pct := 0
	if p.total > 0 {
		pct = int(p.read * 100 / p.total)
	}
	if pct > 99 {
		pct = 99
	}
	report := pct != p.last
	p.last = pct
	p.mu.Unlock()

	if report {
		p.progress(pct)
	}
}

// finish reports 100 once the server confirmed the upload
func (p *progressCounter) finish() {
	if p.progress != nil {
		p.progress(100)
	}
}

type countingReader struct {
	r       io.Reader
	counter *progressCounter
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.counter.add(n)
	return n, err
}
