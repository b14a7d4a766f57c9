package sqlite

import "time"

func nowMilli() int64 {
	return time.Now().UTC().UnixMilli()
}

func fromMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
