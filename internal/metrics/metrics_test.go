package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/Dropzone/internal/domain"
)

func TestRecorder_RecordResult(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordResult(domain.SelectResult{
		AddedFiles: []domain.FileCandidate{
			domain.NewFileCandidate("a.png", "image/png", 1),
			domain.NewFileCandidate("b.png", "image/png", 1),
		},
		RejectedFiles: []domain.RejectedFile{
			{File: domain.NewFileCandidate("c.txt", "text/plain", 1), Reason: domain.RejectType},
			{File: domain.NewFileCandidate("d.png", "image/png", 1), Reason: domain.RejectNoMultiple},
			{File: domain.NewFileCandidate("e.png", "image/png", 1), Reason: domain.RejectNoMultiple},
		},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.candidatesTotal.WithLabelValues("added", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.candidatesTotal.WithLabelValues("rejected", "type")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.candidatesTotal.WithLabelValues("rejected", "no_multiple")))
}

func TestRecorder_Counters(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordInteraction(ResultEmitted)
	r.RecordInteraction(ResultEmitted)
	r.RecordInteraction(ResultSuperseded)
	r.RecordDirectory()
	r.RecordDroppedEntry()
	r.ObserveResolve(10 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.interactionsTotal.WithLabelValues(ResultEmitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.interactionsTotal.WithLabelValues(ResultSuperseded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.directoriesExpanded))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.entriesDropped))
	assert.Equal(t, 1, testutil.CollectAndCount(r.resolveDuration))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.RecordResult(domain.SelectResult{})
		r.RecordInteraction(ResultNoop)
		r.RecordDirectory()
		r.RecordDroppedEntry()
		r.ObserveResolve(time.Second)
	})
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.RecordInteraction(ResultFailed)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `dropzone_interactions_total{result="failed"} 1`))
}
