package worker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluxdag/fluxdag/internal/worker"
)

func TestHostLabels_ReportsCPUCores(t *testing.T) {
	labels := worker.HostLabels(context.Background())
	assert.Contains(t, labels, "cpu_cores")
	assert.NotEmpty(t, labels["cpu_cores"])
}
