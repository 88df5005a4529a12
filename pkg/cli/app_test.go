package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/net"
	"github.com/mchmarny/riskscore/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDatasetHeader = []string{
	"ID", "LIMIT_BAL", "SEX", "EDUCATION", "MARRIAGE", "AGE",
	"PAY_0", "PAY_2", "PAY_3", "PAY_4", "PAY_5", "PAY_6",
	"BILL_AMT1", "BILL_AMT2", "BILL_AMT3", "BILL_AMT4", "BILL_AMT5", "BILL_AMT6",
	"PAY_AMT1", "PAY_AMT2", "PAY_AMT3", "PAY_AMT4", "PAY_AMT5", "PAY_AMT6",
	"default.payment.next.month",
}

// writeTestDataset writes n borrowers whose default odds grow with payment
// delay and shrink with the share of the bill paid.
func writeTestDataset(t *testing.T, path string, n int) {
	t.Helper()
	r := rand.New(rand.NewPCG(3, 5))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(testDatasetHeader))

	num := func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
	for i := 1; i <= n; i++ {
		limit := float64(10000 * (1 + r.IntN(50)))
		base := r.IntN(4) - 1
		util := r.Float64()
		share := r.Float64() * 0.6

		row := []string{strconv.Itoa(i), num(limit), "2", "2", "1", num(float64(21 + r.IntN(45)))}
		delay := 0.0
		for m := 0; m < scoring.MonthsOfHistory; m++ {
			s := base + r.IntN(2)
			if s > 0 {
				delay += float64(s)
			}
			row = append(row, strconv.Itoa(s))
		}
		for m := 0; m < scoring.MonthsOfHistory; m++ {
			row = append(row, num(math.Round(limit*util)))
		}
		for m := 0; m < scoring.MonthsOfHistory; m++ {
			row = append(row, num(math.Round(limit*util*share)))
		}

		logit := -1.5 + 1.2*delay/scoring.MonthsOfHistory - 2*share
		label := "0"
		if r.Float64() < scoring.Sigmoid(logit) {
			label = "1"
		}
		row = append(row, label)
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader("")

	err := app.Run(append([]string{appName}, args...))
	return out.String(), err
}

func decodeOutput[T any](t *testing.T, out string) *T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return &v
}

func TestApp_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	dataset := filepath.Join(dir, "credit.csv")
	writeTestDataset(t, dataset, 400)

	out, err := runApp(t, "--config", dir, "import", "--file", dataset)
	require.NoError(t, err)
	imp := decodeOutput[ImportResult](t, out)
	assert.Equal(t, 400, imp.Imported)
	assert.Equal(t, int64(400), imp.State["borrower"])

	out, err = runApp(t, "--config", dir, "train")
	require.NoError(t, err)
	tr := decodeOutput[TrainResult](t, out)
	require.NotNil(t, tr.Run)
	assert.Equal(t, 400, tr.Run.Records)
	assert.Equal(t, 320, tr.Run.TrainSize)
	assert.Greater(t, tr.Run.ROCAUC, 0.6)
	assert.Equal(t, filepath.Join(dir, "model.json"), tr.Run.ArtifactPath)
	_, err = os.Stat(tr.Run.ArtifactPath)
	require.NoError(t, err)

	out, err = runApp(t, "--config", dir, "score",
		"--limit-bal", "200000", "--age", "35", "--avg-pay-delay", "0",
		"--credit-utilization", "0.3", "--payment-ratio", "0.5")
	require.NoError(t, err)
	sr := decodeOutput[ScoreResponse](t, out)
	assert.Contains(t, []string{"Low", "Medium", "High"}, sr.RiskLevel)
	assert.GreaterOrEqual(t, sr.CreditScore, scoring.MinCreditScore)
	assert.LessOrEqual(t, sr.CreditScore, scoring.MaxCreditScore)

	out, err = runApp(t, "--config", dir, "--format", "yaml", "model")
	require.NoError(t, err)
	assert.Contains(t, out, "format: riskscore/artifact")
	assert.Contains(t, out, "name: payment_ratio")

	out, err = runApp(t, "--config", dir, "borrowers", "--id", "3")
	require.NoError(t, err)
	b := decodeOutput[data.Borrower](t, out)
	assert.Equal(t, int64(3), b.ID)

	out, err = runApp(t, "--config", dir, "borrowers", "--skip", "10", "--limit", "5")
	require.NoError(t, err)
	page := decodeOutput[[]*data.Borrower](t, out)
	require.Len(t, *page, 5)
	assert.Equal(t, int64(11), (*page)[0].ID)

	_, err = runApp(t, "--config", dir, "reset", "--yes")
	require.NoError(t, err)

	out, err = runApp(t, "--config", dir, "borrowers")
	require.NoError(t, err)
	assert.Empty(t, *decodeOutput[[]*data.Borrower](t, out))
}

func TestApp_TrainFromFile(t *testing.T) {
	dir := t.TempDir()
	dataset := filepath.Join(dir, "credit.csv")
	writeTestDataset(t, dataset, 200)
	artifact := filepath.Join(dir, "models", "credit.yaml")

	out, err := runApp(t, "--config", dir, "train", "--file", dataset,
		"--artifact", artifact, "--seed", "7", "--test-size", "0.25", "--threshold", "0.4")
	require.NoError(t, err)
	tr := decodeOutput[TrainResult](t, out)
	assert.Equal(t, uint64(7), tr.Run.Seed)
	assert.Equal(t, 0.4, tr.Run.Threshold)
	assert.InDelta(t, 50, tr.Run.TestSize, 1)

	a, err := scoring.LoadArtifact(artifact)
	require.NoError(t, err)
	assert.Equal(t, scoring.FeatureNames, a.Features)
}

func TestApp_TrainWithoutBorrowers(t *testing.T) {
	_, err := runApp(t, "--config", t.TempDir(), "train")
	assert.Error(t, err)
}

func TestApp_ScoreWithoutArtifact(t *testing.T) {
	_, err := runApp(t, "--config", t.TempDir(), "score",
		"--limit-bal", "1", "--age", "1", "--avg-pay-delay", "0",
		"--credit-utilization", "0", "--payment-ratio", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrArtifactNotFound)
}

func TestApp_ScoreRemote(t *testing.T) {
	srv := httptest.NewServer(testRouter(t))
	defer srv.Close()

	out, err := runApp(t, "--config", t.TempDir(), "score", "--server", srv.URL+"/",
		"--limit-bal", "200000", "--age", "35", "--avg-pay-delay", "0",
		"--credit-utilization", "0.3", "--payment-ratio", "0.5")
	require.NoError(t, err)
	assert.Equal(t, &ScoreResponse{PD: 0.2, CreditScore: 740, RiskLevel: "Medium"}, decodeOutput[ScoreResponse](t, out))
}

func TestApp_ModelRemote(t *testing.T) {
	srv := httptest.NewServer(testRouter(t))
	defer srv.Close()

	out, err := runApp(t, "--config", t.TempDir(), "model", "--server", srv.URL+"/")
	require.NoError(t, err)
	s := decodeOutput[ModelSummary](t, out)
	assert.Equal(t, scoring.ArtifactFormat, s.Format)
	assert.Equal(t, "model.json", s.ArtifactPath)
	require.Len(t, s.Features, scoring.NumFeatures)
	assert.Equal(t, -1.4, s.Intercept)
	assert.Empty(t, s.Runs)

	_, err = runApp(t, "--config", t.TempDir(), "model", "--server", srv.URL+"/missing")
	var se *net.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestApp_TrainInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"zero seed", []string{"--seed", "0"}, "seed must be greater than 0"},
		{"zero test size", []string{"--test-size", "0"}, "test size must be in (0, 1)"},
		{"full test size", []string{"--test-size", "1"}, "test size must be in (0, 1)"},
		{"zero threshold", []string{"--threshold", "0"}, "threshold must be in (0, 1)"},
		{"threshold above one", []string{"--threshold", "1.5"}, "threshold must be in (0, 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dataset := filepath.Join(dir, "credit.csv")
			writeTestDataset(t, dataset, 40)

			args := append([]string{"--config", dir, "train", "--file", dataset}, tt.args...)
			_, err := runApp(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.NoFileExists(t, filepath.Join(dir, "model.json"))
		})
	}
}

func TestApp_InvalidFormat(t *testing.T) {
	_, err := runApp(t, "--config", t.TempDir(), "--format", "xml", "borrowers")
	assert.Error(t, err)
}

func TestApp_ImportErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := runApp(t, "--config", dir, "import", "--file", "a.csv", "--url", "http://localhost/a.csv")
	assert.Error(t, err)

	_, err = runApp(t, "--config", dir, "import", "--file", filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("ID,LIMIT_BAL\n1,100\n"), 0600))
	_, err = runApp(t, "--config", dir, "import", "--file", bad)
	assert.ErrorIs(t, err, scoring.ErrInvalidInput)
}

func TestApp_ImportURLFresh(t *testing.T) {
	dir := t.TempDir()
	dataset := filepath.Join(dir, "credit.csv")
	writeTestDataset(t, dataset, 20)
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	_, err := runApp(t, "--config", dir, "import", "--url", srv.URL+"/credit.csv")
	require.NoError(t, err)

	out, err := runApp(t, "--config", dir, "import", "--url", srv.URL+"/credit.csv", "--fresh")
	require.NoError(t, err)
	imp := decodeOutput[ImportResult](t, out)
	assert.Equal(t, int64(20), imp.Deleted)
	assert.Equal(t, int64(20), imp.State["borrower"])
}

func TestApp_ImportURLSave(t *testing.T) {
	dir := t.TempDir()
	writeTestDataset(t, filepath.Join(dir, "credit.csv"), 20)
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	saved := filepath.Join(t.TempDir(), "copy.csv")
	out, err := runApp(t, "--config", dir, "import", "--url", srv.URL+"/credit.csv", "--save", saved)
	require.NoError(t, err)
	imp := decodeOutput[ImportResult](t, out)
	assert.Equal(t, srv.URL+"/credit.csv", imp.Source)
	assert.Equal(t, saved, imp.Saved)
	assert.Equal(t, 20, imp.Imported)
	assert.FileExists(t, saved)

	_, err = runApp(t, "--config", dir, "import", "--url", srv.URL+"/missing.csv", "--save", filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, net.ErrorURLNotFound)
	assert.NoFileExists(t, filepath.Join(dir, "missing.csv"))

	_, err = runApp(t, "--config", dir, "import", "--file", saved, "--save", filepath.Join(dir, "other.csv"))
	assert.Error(t, err)
}

func TestApp_ResetAborted(t *testing.T) {
	dir := t.TempDir()
	out, err := runApp(t, "--config", dir, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
}

func TestEncode(t *testing.T) {
	v := map[string]int{"count": 2}

	var j bytes.Buffer
	require.NoError(t, encode(&j, formatJSON, v))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", j.String())

	var y bytes.Buffer
	require.NoError(t, encode(&y, formatYAML, v))
	assert.Equal(t, "count: 2\n", y.String())
}
