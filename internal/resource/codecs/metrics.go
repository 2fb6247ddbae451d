package codecs

import (
	"time"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/metrics"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

func observeParse(typeID resource.TypeID, start time.Time, inst *codec.Instance, err error) {
	label := metrics.SuccessLabel
	switch {
	case err != nil && merr.IsCanceledOrTimeout(err):
		label = metrics.CancelLabel
	case err != nil:
		label = metrics.FailLabel
	case inst != nil && !inst.Valid():
		label = metrics.DegradedLabel
	}
	metrics.ParseTotal.WithLabelValues(typeID.String(), label).Inc()
	if err == nil {
		metrics.ParseLatency.WithLabelValues(typeID.String()).
			Observe(float64(time.Since(start).Milliseconds()))
	}
}

func observeSerialize(typeID resource.TypeID, start time.Time, err error) {
	label := metrics.SuccessLabel
	switch {
	case err != nil && merr.IsCanceledOrTimeout(err):
		label = metrics.CancelLabel
	case err != nil:
		label = metrics.FailLabel
	}
	metrics.SerializeTotal.WithLabelValues(typeID.String(), label).Inc()
	if err == nil {
		metrics.SerializeLatency.WithLabelValues(typeID.String()).
			Observe(float64(time.Since(start).Milliseconds()))
	}
}
