package scoring

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ConfusionMatrix counts test predictions at the decision threshold.
// The negative class is "no default".
type ConfusionMatrix struct {
	TN int `json:"tn" yaml:"tn"`
	FP int `json:"fp" yaml:"fp"`
	FN int `json:"fn" yaml:"fn"`
	TP int `json:"tp" yaml:"tp"`
}

// Total returns the number of counted predictions.
func (m ConfusionMatrix) Total() int {
	return m.TN + m.FP + m.FN + m.TP
}

// ClassMetrics are the per-class precision, recall and F1 scores.
type ClassMetrics struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Support   int     `json:"support" yaml:"support"`
}

// ClassificationReport summarizes the thresholded predictions per class.
type ClassificationReport struct {
	NoDefault   ClassMetrics `json:"no_default" yaml:"noDefault"`
	Default     ClassMetrics `json:"default" yaml:"default"`
	Accuracy    float64      `json:"accuracy" yaml:"accuracy"`
	MacroAvg    ClassMetrics `json:"macro_avg" yaml:"macroAvg"`
	WeightedAvg ClassMetrics `json:"weighted_avg" yaml:"weightedAvg"`
}

// rocAUC is the area under the ROC curve of pd scores against binary labels.
func rocAUC(pd []float64, y []int) float64 {
	type scored struct {
		pd       float64
		positive bool
	}
	rows := make([]scored, len(pd))
	for i := range pd {
		rows[i] = scored{pd: pd[i], positive: y[i] == 1}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].pd < rows[j].pd })

	values := make([]float64, len(rows))
	classes := make([]bool, len(rows))
	for i, r := range rows {
		values[i] = r.pd
		classes[i] = r.positive
	}

	tpr, fpr, _ := stat.ROC(nil, values, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

func confusion(pd []float64, y []int, threshold float64) ConfusionMatrix {
	var m ConfusionMatrix
	for i, p := range pd {
		predicted := p >= threshold
		switch {
		case predicted && y[i] == 1:
			m.TP++
		case predicted:
			m.FP++
		case y[i] == 1:
			m.FN++
		default:
			m.TN++
		}
	}
	return m
}

func classification(m ConfusionMatrix) ClassificationReport {
	var r ClassificationReport
	r.NoDefault = classMetrics(m.TN, m.FN, m.FP, m.TN+m.FP)
	r.Default = classMetrics(m.TP, m.FP, m.FN, m.TP+m.FN)

	total := m.Total()
	r.Accuracy = safeDiv(float64(m.TP+m.TN), float64(total))

	r.MacroAvg = ClassMetrics{
		Precision: (r.NoDefault.Precision + r.Default.Precision) / 2,
		Recall:    (r.NoDefault.Recall + r.Default.Recall) / 2,
		F1:        (r.NoDefault.F1 + r.Default.F1) / 2,
		Support:   total,
	}

	wNo := safeDiv(float64(r.NoDefault.Support), float64(total))
	wYes := safeDiv(float64(r.Default.Support), float64(total))
	r.WeightedAvg = ClassMetrics{
		Precision: wNo*r.NoDefault.Precision + wYes*r.Default.Precision,
		Recall:    wNo*r.NoDefault.Recall + wYes*r.Default.Recall,
		F1:        wNo*r.NoDefault.F1 + wYes*r.Default.F1,
		Support:   total,
	}
	return r
}

// classMetrics treats undefined ratios (no predictions, no support) as 0.
func classMetrics(hit, falseHit, miss, support int) ClassMetrics {
	p := safeDiv(float64(hit), float64(hit+falseHit))
	rc := safeDiv(float64(hit), float64(hit+miss))
	return ClassMetrics{
		Precision: p,
		Recall:    rc,
		F1:        safeDiv(2*p*rc, p+rc),
		Support:   support,
	}
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// String renders the report as a fixed-width table.
func (r ClassificationReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	row := func(name string, m ClassMetrics) {
		fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", name, m.Precision, m.Recall, m.F1, m.Support)
	}
	row("0", r.NoDefault)
	row("1", r.Default)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	row("macro avg", r.MacroAvg)
	row("weighted avg", r.WeightedAvg)
	return b.String()
}
