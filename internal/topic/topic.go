package topic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nerrad567/skynet-core/internal/device"
)

// Default bus prefixes.
const (
	DefaultSensorPrefix = "sensors"
	DefaultAlarmPrefix  = "alarms"
)

const (
	separator     = "/"
	multiWildcard = "#"
	segmentCount  = 3
)

// segmentPattern matches a single topic segment.
var segmentPattern = regexp.MustCompile(`^\w+$`)

// Category says which handler a topic belongs to.
type Category int

const (
	// Unknown is the zero Category.
	Unknown Category = iota
	// Sensor topics carry readings and sensor presence.
	Sensor
	// Alarm topics carry alarm presence and alarm commands.
	Alarm
)

// String returns a lowercase category name for logs.
func (c Category) String() string {
	switch c {
	case Sensor:
		return "sensor"
	case Alarm:
		return "alarm"
	default:
		return "unknown"
	}
}

// Topic is a decoded device topic.
type Topic struct {
	Category Category
	ID       device.ID
}

// Codec converts between topic strings and Topic values for one pair of
// prefixes. The zero value is not usable; use New or Default.
type Codec struct {
	sensorPrefix string
	alarmPrefix  string
}

// Default uses the standard "sensors" and "alarms" prefixes.
var Default = Codec{sensorPrefix: DefaultSensorPrefix, alarmPrefix: DefaultAlarmPrefix}

// New creates a Codec. Both prefixes must be single, distinct segments.
func New(sensorPrefix, alarmPrefix string) (Codec, error) {
	for _, p := range []string{sensorPrefix, alarmPrefix} {
		if !segmentPattern.MatchString(p) {
			return Codec{}, fmt.Errorf("%w: %q", ErrInvalidPrefix, p)
		}
	}
	if sensorPrefix == alarmPrefix {
		return Codec{}, fmt.Errorf("%w: sensor and alarm prefixes are both %q", ErrInvalidPrefix, sensorPrefix)
	}
	return Codec{sensorPrefix: sensorPrefix, alarmPrefix: alarmPrefix}, nil
}

// Prefix returns the first topic segment for c.
func (c Codec) Prefix(cat Category) string {
	switch cat {
	case Sensor:
		return c.sensorPrefix
	case Alarm:
		return c.alarmPrefix
	default:
		return ""
	}
}

// CategoryOf classifies a topic by its first segment only.
func (c Codec) CategoryOf(topic string) Category {
	first, _, _ := strings.Cut(topic, separator)
	switch first {
	case c.sensorPrefix:
		return Sensor
	case c.alarmPrefix:
		return Alarm
	default:
		return Unknown
	}
}

// Decode parses a device topic.
//
// Alarm topics must be exactly <prefix>/<type>/<name> with word-character
// segments. Sensor topics need at least three segments; type and name are
// taken from the second and third and may hold any characters except the
// separator. Extra sensor segments are ignored.
func (c Codec) Decode(topic string) (Topic, error) {
	cat := c.CategoryOf(topic)
	if cat == Unknown {
		return Topic{}, fmt.Errorf("%w: %q", ErrUnknownCategory, topic)
	}

	parts := strings.Split(topic, separator)
	if len(parts) < segmentCount {
		return Topic{}, fmt.Errorf("%w: %q has %d segments, want %d", ErrMalformedTopic, topic, len(parts), segmentCount)
	}

	if cat == Alarm {
		if len(parts) != segmentCount {
			return Topic{}, fmt.Errorf("%w: %q has %d segments, want %d", ErrMalformedTopic, topic, len(parts), segmentCount)
		}
		for _, p := range parts[1:] {
			if !segmentPattern.MatchString(p) {
				return Topic{}, fmt.Errorf("%w: %q has invalid segment %q", ErrMalformedTopic, topic, p)
			}
		}
	} else if parts[1] == "" || parts[2] == "" {
		return Topic{}, fmt.Errorf("%w: %q has an empty type or name", ErrMalformedTopic, topic)
	}

	return Topic{
		Category: cat,
		ID:       device.NewID(parts[1], parts[2]),
	}, nil
}

// Encode builds the device topic for id under cat.
func (c Codec) Encode(cat Category, id device.ID) string {
	return c.Prefix(cat) + separator + id.Type + separator + id.Name
}

// Alarm returns the command topic for an alarm.
func (c Codec) Alarm(id device.ID) string {
	return c.Encode(Alarm, id)
}

// Filter returns the subscription filter covering every topic of cat.
func (c Codec) Filter(cat Category) string {
	return c.Prefix(cat) + separator + multiWildcard
}

// Discovery returns the bare discovery topic of cat.
func (c Codec) Discovery(cat Category) string {
	return c.Prefix(cat)
}

// IsDiscovery reports whether topic is a bare prefix.
func (c Codec) IsDiscovery(topic string) bool {
	return topic == c.sensorPrefix || topic == c.alarmPrefix
}
