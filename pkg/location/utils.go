package location

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"googlemaps.github.io/maps"
)

// getWiFiAccessPoints scans visible networks with nmcli and converts
// them into the shape the Geolocation API expects.
func getWiFiAccessPoints(ctx context.Context) ([]maps.WiFiAccessPoint, error) {
	out, err := exec.CommandContext(ctx, "nmcli", "-t", "-f", "BSSID,SIGNAL", "dev", "wifi").Output()
	if err != nil {
		return nil, fmt.Errorf("nmcli scan failed: %w", err)
	}
	return parseWiFiScan(out)
}

// parseWiFiScan reads "BSSID:SIGNAL" lines from a terse nmcli scan.
// nmcli escapes the colons inside the BSSID, so the field separator is
// the last unescaped colon.
func parseWiFiScan(out []byte) ([]maps.WiFiAccessPoint, error) {
	var aps []maps.WiFiAccessPoint
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, ":")
		if idx <= 0 || strings.HasSuffix(line[:idx], "\\") {
			continue
		}
		bssid := strings.ReplaceAll(line[:idx], "\\:", ":")
		signal, err := strconv.Atoi(line[idx+1:])
		if err != nil {
			continue
		}
		aps = append(aps, maps.WiFiAccessPoint{
			MACAddress: bssid,
			// nmcli reports signal as a percentage; approximate dBm.
			SignalStrength: float64(signal)/2 - 100,
		})
	}
	if len(aps) == 0 {
		return nil, errors.New("no wifi access points visible")
	}
	return aps, nil
}

// getCellTowers queries ModemManager for the serving cell of the given
// modem.
func getCellTowers(ctx context.Context, modemIndex int) ([]maps.CellTower, error) {
	out, err := exec.CommandContext(ctx, "mmcli",
		"-m", strconv.Itoa(modemIndex),
		"--location-get", "--output-keyvalue").Output()
	if err != nil {
		return nil, fmt.Errorf("mmcli location query failed: %w", err)
	}
	return parseCellLocation(out)
}

// parseCellLocation reads the serving cell from mmcli keyvalue output.
// LTE modems report a TAC instead of a LAC, so the TAC fills in when no
// LAC is present.
func parseCellLocation(out []byte) ([]maps.CellTower, error) {
	kv := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		kv[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	mcc, _ := strconv.Atoi(kv["modem.location.3gpp.mcc"])
	mnc, _ := strconv.Atoi(kv["modem.location.3gpp.mnc"])
	// ModemManager prints these in hex.
	lac, _ := strconv.ParseInt(kv["modem.location.3gpp.lac"], 16, 64)
	if lac == 0 {
		lac, _ = strconv.ParseInt(kv["modem.location.3gpp.tac"], 16, 64)
	}
	cid, _ := strconv.ParseInt(kv["modem.location.3gpp.cid"], 16, 64)

	if mcc == 0 || cid == 0 {
		return nil, errors.New("modem reports no serving cell")
	}
	return []maps.CellTower{{
		CellID:            int(cid),
		LocationAreaCode:  int(lac),
		MobileCountryCode: mcc,
		MobileNetworkCode: mnc,
	}}, nil
}
