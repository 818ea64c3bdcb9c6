package widget

import (
	"html/template"
	"io"
	"math"
	"strconv"

	"github.com/leasecheck/backend/internal/models"
)

// View is a point-in-time copy of the widget's visible state.
type View struct {
	DragOver bool
	Accept   string
	Entries  []EntryView
	Error    BannerView
	Success  BannerView
}

// EntryView is one file row.
type EntryView struct {
	ID              string
	Name            string
	SizeBytes       int64
	Size            string
	Status          models.EntryStatus
	ProgressPercent int
}

// Snapshot copies the current state under the widget lock.
func (w *Widget) Snapshot() View {
	w.mu.Lock()
	v := View{
		DragOver: w.dragOver,
		Accept:   w.cfg.Policy.Accept(),
		Entries:  make([]EntryView, 0, len(w.entries)),
	}
	for _, e := range w.entries {
		v.Entries = append(v.Entries, EntryView{
			ID:              e.ID,
			Name:            e.File.Name,
			SizeBytes:       e.File.SizeBytes,
			Size:            FormatFileSize(e.File.SizeBytes),
			Status:          e.Status,
			ProgressPercent: e.ProgressPercent,
		})
	}
	w.mu.Unlock()

	v.Error = w.banners.Error()
	v.Success = w.banners.Success()
	return v
}

// Entry returns the row with id, if it is still listed.
func (w *Widget) Entry(id string) (EntryView, bool) {
	for _, e := range w.Snapshot().Entries {
		if e.ID == id {
			return e, true
		}
	}
	return EntryView{}, false
}

// Render writes the widget markup for the current state.
func (w *Widget) Render(out io.Writer) error {
	return widgetTemplate.Execute(out, w.Snapshot())
}

var widgetTemplate = template.Must(template.New("upload-widget").Parse(`<div class="upload-widget">
  <div class="upload-box{{if .DragOver}} drag-over{{end}}">
    <p>Drag and drop your lease here, or</p>
    <label class="upload-button">Browse files
      <input type="file" class="file-input" accept="{{.Accept}}" multiple>
    </label>
  </div>
  <div class="file-list">
{{- range .Entries}}
    <div class="file-item" data-entry-id="{{.ID}}" data-status="{{.Status}}">
      <div class="file-info">
        <div class="file-name">{{.Name}}</div>
        <div class="file-size">{{.Size}}</div>
        <div class="upload-progress">
          <div class="progress-bar" style="width: {{.ProgressPercent}}%"></div>
        </div>
      </div>
      <button type="button" class="file-remove" data-entry-id="{{.ID}}">✕</button>
    </div>
{{- end}}
  </div>
  <div class="error-message" style="display: {{if .Error.Visible}}block{{else}}none{{end}}">{{.Error.Text}}</div>
  <div class="upload-success" style="display: {{if .Success.Visible}}block{{else}}none{{end}}">{{.Success.Text}}</div>
</div>
`))

var sizeUnits = []string{"Bytes", "KB", "MB"}

// FormatFileSize renders a byte count the way the file list shows it:
// 1024-based units up to MB, at most two decimals, no trailing zeros.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}
