package markers

import "github.com/binmap/backend/internal/models"

// Surface is the map capability the reconciler drives.
// Implementations own the markers; the reconciler only holds handles.
type Surface interface {
	AddMarker(m models.Marker)
	UpdateMarker(handle string, pos models.LngLat, popup models.Popup) bool
	RemoveMarker(handle string) bool
	Markers(kind models.MarkerKind) []models.Marker
}
