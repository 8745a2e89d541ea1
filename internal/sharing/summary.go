package sharing

import (
	"errors"
	"io/fs"
	"os"

	"tetherctl/internal/plistdoc"
)

// Summary is a read-only view of the persisted NAT block.
type Summary struct {
	Enabled        int
	PrimaryService string
	PrimaryDevice  string
	Members        []string
	NetworkName    string
}

// ReadSummary reports the NAT block at path. configured is false when the
// file or the block does not exist. The file is never written.
func ReadSummary(path string) (sum Summary, configured bool, err error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Summary{}, false, nil
	}
	doc, err := plistdoc.Load(path)
	if err != nil {
		return Summary{}, false, err
	}
	nat, ok := doc.Dict(NATKey)
	if !ok {
		return Summary{}, false, nil
	}

	sum.Enabled, _ = plistdoc.AsInt(nat["Enabled"])
	sum.PrimaryService, _ = plistdoc.AsString(nat["PrimaryService"])
	if primary, ok := plistdoc.AsDict(nat["PrimaryInterface"]); ok {
		sum.PrimaryDevice, _ = plistdoc.AsString(primary["Device"])
	}
	sum.Members = plistdoc.AsStrings(nat["SharingDevices"])
	if airport, ok := plistdoc.AsDict(nat["AirPort"]); ok {
		sum.NetworkName, _ = plistdoc.AsString(airport["NetworkName"])
	}
	return sum, true, nil
}
