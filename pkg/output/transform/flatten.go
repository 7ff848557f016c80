package transform

import (
	"encoding/json"

	"github.com/certtools/intelmq-elastic-output/pkg/output/log"
	"github.com/certtools/intelmq-elastic-output/pkg/output/metrics"
	"github.com/certtools/intelmq-elastic-output/pkg/output/model"
)

// Flatten promotes the sub-keys of each listed field to top-level
// fields named "{field}_{subkey}" and drops the original field. String
// values get a best-effort JSON decode first. Fields that are absent,
// or whose value is not a mapping after the decode attempt, are left
// untouched. Synthesized names overwrite pre-existing top-level keys.
func Flatten(event model.Event, fields []string) model.Event {
	flattened := event.Clone()

	for _, field := range fields {
		val, ok := flattened[field]
		if !ok {
			continue
		}

		if s, isString := val.(string); isString {
			var decoded any

			err := json.Unmarshal([]byte(s), &decoded)
			if err != nil {
				log.Debugf("field %s is not valid JSON, leaving as-is", field)
				metrics.FlattenDecodeFailures.WithLabelValues(field).Inc()
			} else {
				val = decoded
			}
		}

		nested, isMapping := val.(map[string]any)
		if !isMapping {
			continue
		}

		for key, value := range nested {
			flattened[field+"_"+key] = value
		}
		delete(flattened, field)
	}

	return flattened
}
