package classifier

import (
	"fmt"
)

// ClassReport holds per-class evaluation figures
type ClassReport struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Metrics is the hold-out evaluation report. The confusion matrix is
// [[tn, fp], [fn, tp]] with spam (label 1) as the positive class.
type Metrics struct {
	Accuracy        float64
	Precision       float64
	Recall          float64
	F1              float64
	ConfusionMatrix [2][2]int
	PerClass        map[string]ClassReport
	TrainSamples    int
	TestSamples     int
	ModelSaved      bool
}

// computeMetrics derives binary classification metrics with spam as the
// positive class. Undefined ratios (zero denominators) report as 0.
func computeMetrics(actual, predicted []int) *Metrics {
	var tp, tn, fp, fn int
	correct := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			correct++
		}
		switch {
		case actual[i] == 1 && predicted[i] == 1:
			tp++
		case actual[i] == 0 && predicted[i] == 0:
			tn++
		case actual[i] == 0 && predicted[i] == 1:
			fp++
		case actual[i] == 1 && predicted[i] == 0:
			fn++
		}
	}

	m := &Metrics{
		Accuracy:        safeRatio(correct, len(actual)),
		Precision:       safeRatio(tp, tp+fp),
		Recall:          safeRatio(tp, tp+fn),
		ConfusionMatrix: [2][2]int{{tn, fp}, {fn, tp}},
		PerClass:        make(map[string]ClassReport, 2),
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	// Per-class view: class 0 treats legitimate as positive.
	legitPrecision := safeRatio(tn, tn+fn)
	legitRecall := safeRatio(tn, tn+fp)
	legitF1 := 0.0
	if legitPrecision+legitRecall > 0 {
		legitF1 = 2 * legitPrecision * legitRecall / (legitPrecision + legitRecall)
	}
	m.PerClass["0"] = ClassReport{
		Precision: legitPrecision,
		Recall:    legitRecall,
		F1:        legitF1,
		Support:   tn + fp,
	}
	m.PerClass["1"] = ClassReport{
		Precision: m.Precision,
		Recall:    m.Recall,
		F1:        m.F1,
		Support:   tp + fn,
	}
	return m
}

// String renders a compact one-line summary for logs and CLI output
func (m *Metrics) String() string {
	return fmt.Sprintf("accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f (train=%d test=%d)",
		m.Accuracy, m.Precision, m.Recall, m.F1, m.TrainSamples, m.TestSamples)
}

func safeRatio(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
