package lock

import (
	"reflect"
	"time"
)

// Strategy selects how a concurrent-edit conflict is resolved.
type Strategy string

const (
	LastWriteWins Strategy = "LAST_WRITE_WINS"
	ServerWins    Strategy = "SERVER_WINS"
	Merge         Strategy = "MERGE"
	Manual        Strategy = "MANUAL"
)

// Resolve applies a conflict-resolution strategy to a client/server
// document pair and returns the winning document.
//
// MERGE takes the field-wise union: keys present on one side are kept;
// for keys present on both with different values, the side with the newer
// last_modified_at wins, ties favoring the server. MANUAL returns a
// marker record so a person can resolve the edit.
func Resolve(clientData, serverData map[string]any, strategy Strategy) map[string]any {
	switch strategy {
	case LastWriteWins:
		return clientData
	case ServerWins:
		return serverData
	case Merge:
		return merge(clientData, serverData)
	case Manual:
		return map[string]any{
			"resolution_required": true,
			"client_data":         clientData,
			"server_data":         serverData,
		}
	}
	return serverData
}

func merge(clientData, serverData map[string]any) map[string]any {
	clientNewer := modifiedAt(clientData).After(modifiedAt(serverData))

	merged := make(map[string]any, len(serverData)+len(clientData))
	for k, v := range serverData {
		merged[k] = v
	}
	for k, v := range clientData {
		sv, inServer := serverData[k]
		if !inServer {
			merged[k] = v
			continue
		}
		if clientNewer && !reflect.DeepEqual(v, sv) {
			merged[k] = v
		}
	}
	return merged
}

// modifiedAt reads a document's last_modified_at field; a missing or
// unparseable value reads as the zero time, which loses every comparison.
func modifiedAt(doc map[string]any) time.Time {
	switch v := doc["last_modified_at"].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
