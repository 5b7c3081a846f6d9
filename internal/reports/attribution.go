package reports

import "github.com/radiusdt/shop-reports/internal/models"

// Attribution defaults for orders with no recorded campaign metadata.
const (
	DefaultSource = "direct"
	DefaultMedium = "none"
)

// ResolveAttribution reads the marketing channel recorded on an order.
// Missing or empty fields fall back to the defaults, so the resulting
// tuple is always usable as a channel key.
func ResolveAttribution(o *models.Order) models.Attribution {
	a := models.Attribution{
		Source:   DefaultSource,
		Medium:   DefaultMedium,
		Campaign: "",
	}
	if v := o.Meta(models.MetaUTMSource); v != "" {
		a.Source = v
	}
	if v := o.Meta(models.MetaUTMMedium); v != "" {
		a.Medium = v
	}
	if v := o.Meta(models.MetaUTMCampaign); v != "" {
		a.Campaign = v
	}
	return a
}
