package influx

import (
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"

	"github.com/tomcat-viz/trialviz/internal/parser"
	"github.com/tomcat-viz/trialviz/internal/trial"
)

func TestParsePoint(t *testing.T) {
	tr := trial.New(10)
	tr.Metadata.TrialNumber = "000123"
	tr.Metadata.TeamNumber = "TM0001"

	stats := parser.Stats{
		Lines:               100,
		BadLines:            2,
		WatchedMessages:     80,
		ProcessedMessages:   75,
		UnknownParticipants: 1,
		TicksFilled:         10,
	}

	point := ParsePoint(tr, stats, 1500*time.Millisecond)
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)

	assert.Contains(t, line, "trial_parse")
	assert.Contains(t, line, "trial=000123")
	assert.Contains(t, line, "team=TM0001")
	assert.Contains(t, line, "bad_lines=2i")
	assert.Contains(t, line, "duration_ms=1500i")
}
