// internal/status/status_test.go
package status

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
)

func testTable(t *testing.T) *registers.Table {
	t.Helper()
	tbl, err := registers.NewTable([]registers.Descriptor{
		{CID: 0, Name: "Power-Total", Unit: "W", Digits: 0, HasPrio: true},
		{CID: 1, Name: "Frequency", Unit: "HZ", Digits: 2},
	})
	require.NoError(t, err)
	return tbl
}

func TestStats_SameFaultDoesNotRestamp(t *testing.T) {
	st := NewStats()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, st.ReadCycleFailed(t0, 7, "timeout", 0))
	assert.False(t, st.ReadCycleFailed(t0.Add(time.Minute), 7, "timeout again", 0))

	s := st.Snapshot()
	assert.Equal(t, uint64(2), s.ReadError)
	assert.Equal(t, t0, s.ReadErrAt)
	assert.Equal(t, "timeout", s.LastErrorText)

	// A different fault always re-stamps.
	t2 := t0.Add(2 * time.Minute)
	assert.True(t, st.ReadCycleFailed(t2, 11, "exception", 0))
	s = st.Snapshot()
	assert.Equal(t, t2, s.ReadErrAt)
	assert.Equal(t, uint16(11), s.LastErrorCode)
}

func TestStats_SuccessClearsDistinctFault(t *testing.T) {
	st := NewStats()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	st.ReadCycleFailed(t0, 7, "timeout", 0)
	st.ReadCycleOK(t0.Add(time.Second), 40*time.Millisecond)

	s := st.Snapshot()
	assert.Equal(t, FaultNone, s.LastErrorCode)
	assert.Equal(t, uint64(1), s.ReadSuccess)
	assert.Equal(t, 40*time.Millisecond, s.ReadCycle)

	// Same code as before the success counts as a new fault.
	t3 := t0.Add(time.Hour)
	assert.True(t, st.ReadCycleFailed(t3, 7, "timeout", 0))
	assert.Equal(t, t3, st.Snapshot().ReadErrAt)
}

func TestStats_PublishCycle(t *testing.T) {
	st := NewStats()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	st.Published(true)
	st.Published(false)
	st.PublishCycleDone(t0, true, time.Millisecond)
	st.PublishCycleDone(t0.Add(time.Second), false, time.Millisecond)

	s := st.Snapshot()
	assert.Equal(t, uint64(1), s.PublishSuccess)
	assert.Equal(t, uint64(1), s.PublishError)
	assert.Equal(t, t0, s.PublishErrAt)
	assert.Equal(t, t0.Add(time.Second), s.PublishOKAt)
}

func TestShortTS(t *testing.T) {
	assert.Equal(t, NoRead, ShortTS(time.Time{}, NoRead))

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	assert.Equal(t, "2024-01-02@03:04:05", ShortTS(ts, NoRead))
}

func TestUptime(t *testing.T) {
	d := 3*24*time.Hour + 4*time.Hour + 5*time.Minute + 6*time.Second
	assert.Equal(t, "   3d:04:05:06", Uptime(d))
	assert.Equal(t, "   0d:00:00:00", Uptime(0))
}

func TestEncode_TagOrder(t *testing.T) {
	tbl := testTable(t)
	tbl.Apply(0, 1234.4)
	tbl.Apply(1, 49.996)

	st := NewStats()
	st.ReadCycleOK(time.Now(), 40*time.Millisecond)

	out := string(Encode(tbl, st.Snapshot(), Identity{
		DeviceName: "Meter <A&B>",
		Project:    "bridge",
		Version:    "v1.0.0",
		BuildTime:  "2024-05-01",
		Chip:       "linux/arm64",
	}, Meta{Uptime: time.Minute, FreeMemory: 123456}))

	require.True(t, strings.HasPrefix(out, "<xml><response0>1234</response0><response1>50.00</response1>"))
	require.True(t, strings.HasSuffix(out, "</xml>"))

	tags := regexp.MustCompile(`<([a-z0-9]+)>`).FindAllStringSubmatch(out, -1)
	var order []string
	for _, m := range tags {
		order = append(order, m[1])
	}
	assert.Equal(t, []string{
		"xml", "response0", "response1",
		"prmname", "sdmcnt", "errtotal", "timest", "errorts", "lasterrtxt",
		"mqttcnts", "mqttcnte", "mqtttss", "mqtttse",
		"upt", "freeh", "rganswtm", "dsreadtm",
		"fwname", "fwver", "fwbuildts", "chipname",
	}, order)

	assert.Contains(t, out, "<prmname>Meter &lt;A&amp;B&gt;</prmname>")
	assert.Contains(t, out, "<freeh>123.456</freeh>")
	assert.Contains(t, out, "<rganswtm>20</rganswtm>")
	assert.Contains(t, out, "<dsreadtm>40</dsreadtm>")
	assert.Contains(t, out, "<mqtttss>-no publish-</mqtttss>")
	assert.Contains(t, out, "<errorts>-no error-</errorts>")
	assert.Contains(t, out, "<lasterrtxt>OK</lasterrtxt>")
}

func TestEncode_ValuesRoundTrip(t *testing.T) {
	tbl, err := registers.NewTable(registers.SDM630())
	require.NoError(t, err)
	for i := 0; i < tbl.Size(); i++ {
		tbl.Apply(i, float64(i)*3.14159+0.005)
	}

	out := string(Encode(tbl, NewStats().Snapshot(), Identity{}, Meta{}))

	re := regexp.MustCompile(`<response(\d+)>([^<]*)</response`)
	matches := re.FindAllStringSubmatch(out, -1)
	require.Len(t, matches, tbl.Size())

	for _, m := range matches {
		i, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		got, err := strconv.ParseFloat(m[2], 64)
		require.NoError(t, err)

		d := tbl.Descriptor(i)
		assert.InDelta(t, registers.Round(tbl.Get(i).Value, d.Digits), got, 1e-9, d.Name)
	}
}
