package server

import (
	"bytes"
	_ "embed"
	"io"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/conneroisu/assetflow/internal/logging"
	"github.com/spf13/afero"
)

//go:embed client.js
var clientScript []byte

var (
	bodyClose  = []byte("</body>")
	clientTag  = []byte(`<script src="` + PathClient + `"></script>`)
	indexNames = []string{"index.html", "index.htm"}
)

// InjectClient inserts the live-reload script before the last </body>,
// or appends it when there is none.
func InjectClient(page []byte) []byte {
	lower := bytes.ToLower(page)
	i := bytes.LastIndex(lower, bodyClose)
	if i < 0 {
		return append(append([]byte(nil), page...), clientTag...)
	}

	out := make([]byte, 0, len(page)+len(clientTag))
	out = append(out, page[:i]...)
	out = append(out, clientTag...)
	return append(out, page[i:]...)
}

// staticHandler serves the output directory. HTML pages get the client
// script and directories without an index get a listing.
type staticHandler struct {
	fs     http.FileSystem
	logger logging.Logger
}

func newStaticHandler(fsys afero.Fs, root string, logger logging.Logger) http.Handler {
	return &staticHandler{
		fs:     afero.NewHttpFs(fsys).Dir(root),
		logger: logger,
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	f, err := h.fs.Open(name)
	if err != nil {
		h.notFound(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.notFound(w, r, err)
		return
	}

	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		for _, index := range indexNames {
			if h.servePage(w, r, path.Join(name, index)) {
				return
			}
		}
		h.serveListing(w, r, name, f)
		return
	}

	if isHTML(name) {
		h.servePage(w, r, name)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// servePage writes the HTML file at name with the client injected. It
// reports false when the file does not exist.
func (h *staticHandler) servePage(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := h.fs.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	page, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error(r.Context(), err, "Failed to read page", "path", name)
		http.Error(w, "failed to read page", http.StatusInternalServerError)
		return true
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, info.Name(), info.ModTime(), bytes.NewReader(InjectClient(page)))
	return true
}

func (h *staticHandler) serveListing(w http.ResponseWriter, r *http.Request, name string, dir http.File) {
	infos, err := dir.Readdir(-1)
	if err != nil {
		h.logger.Error(r.Context(), err, "Failed to list directory", "path", name)
		http.Error(w, "failed to list directory", http.StatusInternalServerError)
		return
	}

	entries := make([]ListingEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, ListingEntry{
			Name:    info.Name(),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})

	var buf bytes.Buffer
	if err := Listing(name, entries).Render(r.Context(), &buf); err != nil {
		h.logger.Error(r.Context(), err, "Failed to render listing", "path", name)
		http.Error(w, "failed to render listing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(InjectClient(buf.Bytes()))
}

func (h *staticHandler) notFound(w http.ResponseWriter, r *http.Request, err error) {
	if os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}
	http.Error(w, "failed to open file", http.StatusInternalServerError)
}

func isHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}
