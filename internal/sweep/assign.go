package sweep

import (
	"sort"

	"github.com/leadengine/backend/internal/models"
	"github.com/leadengine/backend/internal/utils"
)

// PickAgent selects the least-loaded active agent, with a deterministic
// fnv-hash split between the two least-loaded so a single agent does not
// absorb every lead in a burst. Returns false when no agent is eligible.
func PickAgent(leadID string, agents []models.Agent) (models.Agent, bool) {
	eligible := make([]models.Agent, 0, len(agents))
	for _, a := range agents {
		if a.Active {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) == 0 {
		return models.Agent{}, false
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].CurrentLoad == eligible[j].CurrentLoad {
			return eligible[i].ID < eligible[j].ID
		}
		return eligible[i].CurrentLoad < eligible[j].CurrentLoad
	})

	if len(eligible) == 1 {
		return eligible[0], true
	}
	top2 := eligible[:2]
	idx := int(utils.HashStringToUint64(leadID) % 2)
	return top2[idx], true
}
