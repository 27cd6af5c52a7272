package markers

import (
	"bytes"
	"html/template"

	"github.com/binmap/backend/internal/models"
)

var popupTemplate = template.Must(template.New("popup").Parse(`<div class="popup">
  <h1 class="popup-title">{{.Title}}</h1>
  <div class="popup-counters">
    <div class="row"><p>ขยะรีไซเคิล</p><div class="counter recycle">{{.Counters.Recycle}}</div></div>
    <div class="row"><p>ขยะทั่วไป</p><div class="counter general">{{.Counters.General}}</div></div>
    <div class="row"><p>ขยะเปียก</p><div class="counter wet">{{.Counters.Wet}}</div></div>
    <div class="row"><p>ขยะอันตราย</p><div class="counter danger">{{.Counters.Danger}}</div></div>
  </div>
{{- if .Label}}
  <div class="popup-status">สถานะถังขยะ: <span class="text-{{.Label.Color}}" title="{{.Label.Text}}">{{.Label.LocalText}}</span></div>
{{- end}}
</div>`))

// BinPopup renders the popup for a bin, including its status label.
func BinPopup(b models.BinStat) models.Popup {
	return render(models.Popup{
		Title:    b.Name,
		Counters: b.FillLevels,
		Label:    models.LabelFor(b),
	})
}

// TruckPopup renders the popup for a truck. Trucks have no status label.
func TruckPopup(t models.TruckStat) models.Popup {
	return render(models.Popup{
		Title:    t.Name,
		Counters: t.FillLevels,
	})
}

func render(p models.Popup) models.Popup {
	var buf bytes.Buffer
	// The template only reads plain fields; execution cannot fail.
	_ = popupTemplate.Execute(&buf, p)
	p.HTML = buf.String()
	return p
}
