package collector

import (
	"context"

	"github.com/infrapulse/fabricmon/internal/models"
)

// enrichLocations updates SiteName and RackLocation on the known nodes from
// the location directory. The full index is fetched once per pass; nodes are
// matched by name and only rows whose location actually changed are written.
func (r *Runner) enrichLocations(ctx context.Context, known map[string]*models.FabricNode) (int, error) {
	index, err := r.locations.FetchLocations(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for path, node := range known {
		loc, ok := index.Lookup(node.Name)
		if !ok {
			continue
		}
		if node.SiteName == loc.Site && node.RackLocation == loc.Rack {
			continue
		}
		node.SiteName = loc.Site
		node.RackLocation = loc.Rack
		if err := r.db.Model(node).Updates(map[string]any{
			"site_name":     loc.Site,
			"rack_location": loc.Rack,
		}).Error; err != nil {
			r.log.Warn().Str("node", path).Err(err).Msg("updating node location failed")
			continue
		}
		updated++
	}
	return updated, nil
}
