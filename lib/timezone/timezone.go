package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Copenhagen")
	if err != nil {
		panic(err)
	}
}

// force timezone to be Danish local time because the operator
// portals interpret bare dates in local time and the servers this
// runs on are not guaranteed to be in the same zone
func Now() time.Time {
	return time.Now().In(Location)
}
