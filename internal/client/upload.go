package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

// File is an upload part.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// ProgressFunc receives the percentage of the request body written so far.
// It is called synchronously by the transport, only when the value changes.
type ProgressFunc func(percent int)

type multipartForm struct {
	fields [][2]string
	files  map[string]File
}

func (f multipartForm) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, kv := range f.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}

	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, field := range names {
		file := f.files[field]
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(file.Name)))
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file.Body); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func (c *Client) upload(ctx context.Context, method, path string, form multipartForm, progress ProgressFunc) error {
	buf, contentType, err := form.encode()
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}

	size := int64(buf.Len())
	var body io.Reader = buf
	if progress != nil {
		body = &progressReader{r: buf, total: size, fn: progress, last: -1}
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	req.ContentLength = size
	return c.do(req, nil)
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	pct := 100
	if p.total > 0 {
		pct = int((p.read*100 + p.total/2) / p.total)
	}
	if pct != p.last {
		p.last = pct
		p.fn(pct)
	}
	return n, err
}
