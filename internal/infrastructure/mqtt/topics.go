package mqtt

// Topics the gateway itself publishes on. Device topics (sensors/…, alarms/…)
// belong to the topic package.
const (
	// TopicPrefixSystem is the base for coordinator system topics.
	TopicPrefixSystem = "skynet/system"

	// TopicStatus carries the retained online/offline status of the
	// coordinator, including the LWT.
	TopicStatus = TopicPrefixSystem + "/status"
)
