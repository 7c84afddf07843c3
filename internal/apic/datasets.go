package apic

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"
)

// Dataset classes fetched during one collection pass. ClassNodeInventory is
// the primary inventory call: its failure aborts the pass, every other
// dataset degrades to an empty set.
const (
	ClassNodeInventory  = "fabricNode"
	ClassSystem         = "topSystem"
	ClassHealth5Min     = "fabricNodeHealth5min"
	ClassHealth15Min    = "fabricNodeHealth15min"
	ClassCPU            = "procSysCPU5min"
	ClassMemory         = "procSysMem5min"
	ClassTemperature    = "eqptTemp5min"
	ClassFan            = "eqptFan"
	ClassFirmware       = "firmwareRunning"
	ClassPhysIf         = "l1PhysIf"
	ClassPhysIfOper     = "ethpmPhysIf"
	ClassTransceiver    = "ethpmFcot"
	ClassAggregateIf    = "pcAggrIf"
	ClassAggregateMbr   = "pcRsMbrIfs"
	ClassEPGBinding     = "fvRsPathAtt"
	ClassL3OutBinding   = "l3extRsPathL3OutAtt"
)

// correlationClasses are fetched concurrently and joined before the
// correlator runs. Order is irrelevant; each fetch is independent.
var correlationClasses = []string{
	ClassSystem,
	ClassHealth5Min,
	ClassHealth15Min,
	ClassCPU,
	ClassMemory,
	ClassTemperature,
	ClassFan,
	ClassFirmware,
	ClassPhysIf,
	ClassPhysIfOper,
	ClassTransceiver,
	ClassAggregateIf,
	ClassAggregateMbr,
	ClassEPGBinding,
	ClassL3OutBinding,
}

// Datasets is the keyed raw record collection for one collection pass.
type Datasets map[string][]json.RawMessage

// Records returns the raw records for a class, or nil when the dataset is
// absent or degraded.
func (d Datasets) Records(class string) []json.RawMessage { return d[class] }

// FetchDatasets issues the node-inventory query plus one query per
// correlation class, all concurrently. A failing correlation dataset is
// logged and replaced with an empty set so one endpoint can never abort the
// whole pass; only a node-inventory failure is returned as an error.
func (c *Client) FetchDatasets(ctx context.Context) (Datasets, error) {
	datasets := make(Datasets, len(correlationClasses)+1)
	results := make(map[string][]json.RawMessage, len(correlationClasses))

	g, gctx := errgroup.WithContext(ctx)

	var nodeRecords []json.RawMessage
	g.Go(func() error {
		records, err := c.ClassQuery(gctx, ClassNodeInventory)
		if err != nil {
			return err
		}
		nodeRecords = records
		return nil
	})

	type classResult struct {
		class   string
		records []json.RawMessage
	}
	resultCh := make(chan classResult, len(correlationClasses))
	for _, class := range correlationClasses {
		class := class
		g.Go(func() error {
			records, err := c.ClassQuery(gctx, class)
			if err != nil {
				// Degrade per dataset: one class failing must never
				// abort the pass.
				c.log.Warn().Str("class", class).Err(err).Msg("dataset fetch failed; using empty set")
				resultCh <- classResult{class: class}
				return nil
			}
			resultCh <- classResult{class: class, records: records}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(resultCh)
	for r := range resultCh {
		results[r.class] = r.records
	}

	datasets[ClassNodeInventory] = nodeRecords
	for _, class := range correlationClasses {
		datasets[class] = results[class]
	}
	return datasets, nil
}
