package classes

// GPX maps Garmin <sym> names to classes.
var GPX = newTable([][2]string{
	{"Restaurant", Restaurant},
	{"Fast Food", FastFood},
	{"Pizza", FastFood},
	{"Bar", Bar},
	{"Lodging", Hotel},
	{"Hotel", Hotel},
	{"Campground", Campground},
	{"Gas Station", Fuel},
	{"Parking Area", Parking},
	{"Medical Facility", Hospital},
	{"Pharmacy", Pharmacy},
	{"School", School},
	{"Bank", Bank},
	{"Post Office", PostOffice},
	{"Police Station", Police},
	{"Church", Church},
	{"Restroom", Toilets},
	{"Shopping Center", Shop},
	{"Convenience Store", Supermarket},
	{"Museum", Museum},
	{"Scenic Area", Viewpoint},
	{"Summit", Peak},
	{"City (Large)", City},
	{"City (Medium)", Town},
	{"City (Small)", Village},
	{"Airport", Airport},
	{"Ground Transportation", BusStop},
	{"Trail Head", Trail},
	{"Beach", Beach},
	{"Park", Park},
	{"Forest", Forest},
	{"Waypoint", Waypoint},
	{"Flag, Blue", Waypoint},
	{"Flag, Green", Waypoint},
	{"Flag, Red", Waypoint},
	{"Pin, Blue", Waypoint},
})

// GPXClass returns the class for a <sym> value, or the point fallback.
func GPXClass(sym string) string {
	if c, ok := GPX.Class(sym); ok {
		return c
	}
	return UnspecifiedPoint
}

// GPXSymbol returns the <sym> value for a class; unmapped classes export as
// a generic waypoint flag.
func GPXSymbol(class string) string {
	if s, ok := GPX.Native(class); ok {
		return s
	}
	return "Waypoint"
}
