package capture

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/zwave"
)

type staticRenderer map[zwave.ValueID]string

func (r staticRenderer) GetValueAsString(vid zwave.ValueID) (string, error) {
	s, ok := r[vid]
	if !ok {
		return "", zwave.ErrUnknownValue
	}
	return s, nil
}

var level = zwave.ValueID{HomeID: 0xcafe, NodeID: 4, Genre: zwave.GenreUser, CommandClassID: zwave.CCSwitchMultilevel, Instance: 1, Type: zwave.ValueTypeByte}

func at(sec int64) time.Time { return time.Unix(1700000000+sec, 0).UTC() }

func TestRecordRoundTripsNotification(t *testing.T) {
	n := zwave.Notification{Type: zwave.NotificationValueChanged, HomeID: 0xcafe, NodeID: 4, ValueID: level, Time: at(1)}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewRecord("s", n, "42")))

	var rec Record
	require.NoError(t, decMode.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "42", rec.Reading)

	got, err := rec.Notification()
	require.NoError(t, err)
	assert.Equal(t, n.ValueID, got.ValueID)
	assert.Equal(t, n.Type, got.Type)
	assert.True(t, n.Time.Equal(got.Time))
}

func TestNodeScopedRecordHasNoValueID(t *testing.T) {
	rec := NewRecord("s", zwave.Notification{Type: zwave.NotificationNotification, HomeID: 0xcafe, NodeID: 5, RawCode: uint8(zwave.CodeDead)}, "")
	assert.Empty(t, rec.ValueID)

	n, err := rec.Notification()
	require.NoError(t, err)
	code, ok := n.Code()
	require.True(t, ok)
	assert.Equal(t, zwave.CodeDead, code)
}

func TestFileLoggerAppendsAndFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")

	first, err := NewFileLogger(path, staticRenderer{level: "42"})
	require.NoError(t, err)
	first.Watch(zwave.Notification{Type: zwave.NotificationNodeAdded, HomeID: 0xcafe, NodeID: 4, Time: at(1)}, first)
	first.Watch(zwave.Notification{Type: zwave.NotificationValueChanged, HomeID: 0xcafe, NodeID: 4, ValueID: level, Time: at(2)}, first)
	require.NoError(t, first.Close())
	first.Watch(zwave.Notification{Type: zwave.NotificationNodeAdded, HomeID: 0xcafe, NodeID: 9}, first)
	assert.EqualValues(t, 2, first.Written())

	second, err := NewFileLogger(path, nil)
	require.NoError(t, err)
	second.Watch(zwave.Notification{Type: zwave.NotificationDriverReady, HomeID: 0xbeef, NodeID: 1, Time: at(3)}, second)
	require.NoError(t, second.Close())
	assert.NotEqual(t, first.Session(), second.Session())

	r, err := Open(path, Filter{})
	require.NoError(t, err)
	var all []Record
	require.NoError(t, r.Walk(func(rec Record) bool { all = append(all, rec); return true }))
	require.NoError(t, r.Close())
	require.Len(t, all, 3)
	assert.Equal(t, "42", all[1].Reading)

	r, err = Open(path, Filter{Session: second.Session()})
	require.NoError(t, err)
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xbeef), rec.HomeID)
	_, err = r.Next()
	assert.True(t, errors.Is(err, io.EOF))
	require.NoError(t, r.Close())
}

func TestFilterCriteria(t *testing.T) {
	rec := NewRecord("s", zwave.Notification{Type: zwave.NotificationValueChanged, HomeID: 0xcafe, NodeID: 4, ValueID: level, Time: at(10)}, "")

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"home", Filter{HomeID: 0xcafe}, true},
		{"other home", Filter{HomeID: 0xbeef}, false},
		{"node", Filter{NodeID: 5}, false},
		{"type", Filter{Types: []zwave.NotificationType{zwave.NotificationValueAdded, zwave.NotificationValueChanged}}, true},
		{"other type", Filter{Types: []zwave.NotificationType{zwave.NotificationNodeAdded}}, false},
		{"since", Filter{Since: at(10)}, true},
		{"until is exclusive", Filter{Until: at(10)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.matches(rec))
		})
	}
}

func TestFileLoggerConcurrentWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	l, err := NewFileLogger(path, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(node int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				l.Watch(zwave.Notification{Type: zwave.NotificationNodeEvent, HomeID: 0xcafe, NodeID: zwave.NodeID(node + 2)}, l)
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, l.Close())

	r, err := Open(path, Filter{})
	require.NoError(t, err)
	defer r.Close()
	count := 0
	require.NoError(t, r.Walk(func(Record) bool { count++; return true }))
	assert.Equal(t, 200, count)
}
