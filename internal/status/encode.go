// internal/status/encode.go
package status

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
)

// Identity is the static build and device information shown in the snapshot.
type Identity struct {
	DeviceName string
	Project    string
	Version    string
	BuildTime  string
	Chip       string
}

// Meta is the runtime information sampled by the caller for one snapshot.
type Meta struct {
	Uptime     time.Duration
	FreeMemory uint64 // bytes
}

// Encode builds the XML snapshot of tbl plus statistics and metadata.
//
// Layout is positional and tag-based, consumers depend on the exact order.
// No IO. No side effects. The caller owns the returned slice.
func Encode(tbl *registers.Table, s Snapshot, id Identity, m Meta) []byte {
	var b bytes.Buffer
	b.Grow(64*tbl.Size() + 1024)

	b.WriteString("<xml>")

	for i := 0; i < tbl.Size(); i++ {
		d := tbl.Descriptor(i)
		fmt.Fprintf(&b, "<response%d>%s</response%d>", i, registers.Format(tbl.Get(i).Value, d.Digits), i)
	}

	text(&b, "prmname", id.DeviceName)
	num(&b, "sdmcnt", s.ReadSuccess)
	num(&b, "errtotal", s.ReadError)
	text(&b, "timest", ShortTS(s.ReadOKAt, NoRead))
	text(&b, "errorts", ShortTS(s.ReadErrAt, NoError))
	text(&b, "lasterrtxt", s.LastErrorText)

	num(&b, "mqttcnts", s.PublishSuccess)
	num(&b, "mqttcnte", s.PublishError)
	text(&b, "mqtttss", ShortTS(s.PublishOKAt, NoPublish))
	text(&b, "mqtttse", ShortTS(s.PublishErrAt, NoError))

	text(&b, "upt", Uptime(m.Uptime))
	text(&b, "freeh", fmt.Sprintf("%d.%03d", m.FreeMemory/1000, m.FreeMemory%1000))

	total := s.ReadCycle.Milliseconds()
	num(&b, "rganswtm", uint64(total)/uint64(tbl.Size()))
	num(&b, "dsreadtm", uint64(total))

	text(&b, "fwname", id.Project)
	text(&b, "fwver", id.Version)
	text(&b, "fwbuildts", id.BuildTime)
	text(&b, "chipname", id.Chip)

	b.WriteString("</xml>")
	return b.Bytes()
}

func text(b *bytes.Buffer, tag, v string) {
	b.WriteString("<" + tag + ">")
	_ = xml.EscapeText(b, []byte(v))
	b.WriteString("</" + tag + ">")
}

func num(b *bytes.Buffer, tag string, v uint64) {
	b.WriteString("<" + tag + ">")
	b.WriteString(strconv.FormatUint(v, 10))
	b.WriteString("</" + tag + ">")
}
