package timeline

import (
	"math"

	"reelcomp/model"
)

func secs(s float64) model.RationalTime {
	return model.RationalTime{Rate: 30, Value: s * 30}
}

func rangeAt(start, dur float64) model.TimeRange {
	return model.TimeRange{StartTime: secs(start), Duration: secs(dur)}
}

func mediaClip(url string, dur float64) *model.Clip {
	return &model.Clip{
		SourceRange:             rangeAt(0, dur),
		MediaReferences:         map[string]model.MediaReference{"main": {TargetURL: url}},
		ActiveMediaReferenceKey: "main",
	}
}

func componentClip(name string, start, dur float64, props map[string]any) *model.Clip {
	meta := model.Metadata{model.MetaComponent: name, model.MetaGlobalStart: start}
	if props != nil {
		meta[model.MetaProps] = props
	}
	return &model.Clip{SourceRange: rangeAt(0, dur), Metadata: meta}
}

func fade(in, out float64) *model.Transition {
	return &model.Transition{InOffset: secs(in), OutOffset: secs(out)}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
