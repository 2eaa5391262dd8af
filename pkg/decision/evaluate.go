package decision

import (
	"context"

	"riego/entities"
	"riego/pkg/errors"
)

const evaluatePageSize = 1000

// Evaluation compares model decisions with the stored NecesitaRiego labels.
type Evaluation struct {
	Model       string  `json:"modelo,omitempty"`
	Samples     int     `json:"muestras"`
	TP          int     `json:"tp"`
	TN          int     `json:"tn"`
	FP          int     `json:"fp"`
	FN          int     `json:"fn"`
	Accuracy    float64 `json:"accuracy"`
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	Specificity float64 `json:"specificity"`
	F1          float64 `json:"f1"`
	AUC         float64 `json:"auc"`
	Threshold   float64 `json:"threshold"`
}

// Evaluate scores every labelled reading. AUC is approximated as the mean of
// recall and specificity.
func (e *Engine) Evaluate(ctx context.Context) (*Evaluation, error) {
	cfg := e.thresholds.Current()
	ev := &Evaluation{Model: cfg.Model, Threshold: cfg.Threshold}

	err := e.readings.EachLabelled(ctx, evaluatePageSize, func(rs []entities.Reading) error {
		for _, r := range rs {
			if r.NeedsIrrigation == nil {
				continue
			}
			rec, err := e.fromStored(ctx, r)
			if err != nil {
				return err
			}
			ev.add(rec.NeedsIrrigation, *r.NeedsIrrigation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ev.Samples == 0 {
		return nil, errors.New(ErrNoLabelledReadings).Category(errors.CategoryNotFound).Component("decision").Build()
	}
	ev.finish()
	e.log.Info("model evaluated", "samples", ev.Samples, "accuracy", ev.Accuracy, "f1", ev.F1)
	return ev, nil
}

func (ev *Evaluation) add(predicted, actual bool) {
	ev.Samples++
	switch {
	case predicted && actual:
		ev.TP++
	case predicted && !actual:
		ev.FP++
	case !predicted && actual:
		ev.FN++
	default:
		ev.TN++
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func (ev *Evaluation) finish() {
	ev.Accuracy = ratio(ev.TP+ev.TN, ev.Samples)
	ev.Precision = ratio(ev.TP, ev.TP+ev.FP)
	ev.Recall = ratio(ev.TP, ev.TP+ev.FN)
	ev.Specificity = ratio(ev.TN, ev.TN+ev.FP)
	if ev.Precision+ev.Recall > 0 {
		ev.F1 = 2 * ev.Precision * ev.Recall / (ev.Precision + ev.Recall)
	}
	ev.AUC = (ev.Recall + ev.Specificity) / 2
}
