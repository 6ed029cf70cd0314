package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// Topic layout:
//
//	<prefix>/status                          online/offline, retained
//	<prefix>/<home>/events                   every notification
//	<prefix>/<home>/<node>/<value id>        value state, retained
//	<prefix>/<home>/<node>/<value id>/set    writes, string payload

const setSuffix = "set"

func statusTopic(prefix string) string {
	return prefix + "/status"
}

func eventsTopic(prefix string, home zwave.HomeID) string {
	return fmt.Sprintf("%s/%s/events", prefix, home)
}

func valueTopic(prefix string, vid zwave.ValueID) string {
	return fmt.Sprintf("%s/%s/%d/%s", prefix, vid.HomeID, vid.NodeID, vid)
}

func setFilter(prefix string) string {
	return prefix + "/+/+/+/" + setSuffix
}

// parseSetTopic extracts the value id from a write topic and checks that
// the home and node segments agree with it.
func parseSetTopic(prefix, topic string) (zwave.ValueID, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	parts := strings.Split(rest, "/")
	if !ok || len(parts) != 4 || parts[3] != setSuffix {
		return zwave.ValueID{}, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	vid, err := zwave.ParseValueID(parts[2])
	if err != nil {
		return zwave.ValueID{}, err
	}
	home, err := strconv.ParseUint(parts[0], 0, 32)
	if err != nil || zwave.HomeID(home) != vid.HomeID {
		return zwave.ValueID{}, fmt.Errorf("%w: home %q does not match value %s", ErrInvalidTopic, parts[0], vid)
	}
	node, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || zwave.NodeID(node) != vid.NodeID {
		return zwave.ValueID{}, fmt.Errorf("%w: node %q does not match value %s", ErrInvalidTopic, parts[1], vid)
	}
	return vid, nil
}
