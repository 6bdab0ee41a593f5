package classes

import (
	"strings"

	"github.com/paulmach/osm"
)

// OSM maps "key=value" (or "key=*" for any value) tags to classes.
var OSM = newTable([][2]string{
	{"natural=coastline", Coastline},
	{"place=island", Island},
	{"place=islet", SmallIsland},
	{"natural=water", Lake},
	{"water=lake", Lake},
	{"landuse=reservoir", Lake},
	{"waterway=river", River},
	{"waterway=riverbank", River},
	{"waterway=stream", Stream},
	{"waterway=canal", River},
	{"natural=wood", Forest},
	{"landuse=forest", Forest},
	{"natural=beach", Beach},
	{"natural=wetland", Wetland},
	{"natural=peak", Peak},
	{"natural=grassland", Grass},
	{"landuse=grass", Grass},
	{"landuse=meadow", Grass},
	{"leisure=park", Park},
	{"leisure=garden", Park},
	{"landuse=residential", Residential},
	{"landuse=commercial", Commercial},
	{"landuse=retail", Commercial},
	{"landuse=industrial", Industrial},
	{"landuse=farmland", Farmland},
	{"landuse=cemetery", Cemetery},
	{"amenity=grave_yard", Cemetery},
	{"building=*", Building},

	{"highway=motorway", Motorway},
	{"highway=motorway_link", Motorway},
	{"highway=trunk", Trunk},
	{"highway=trunk_link", Trunk},
	{"highway=primary", PrimaryRoad},
	{"highway=primary_link", PrimaryRoad},
	{"highway=secondary", SecondaryRoad},
	{"highway=tertiary", TertiaryRoad},
	{"highway=residential", ResidentialRoad},
	{"highway=living_street", ResidentialRoad},
	{"highway=service", ServiceRoad},
	{"highway=unclassified", UnclassRoad},
	{"highway=track", Track},
	{"highway=footway", Footpath},
	{"highway=path", Trail},
	{"highway=steps", Footpath},
	{"highway=cycleway", Cycleway},
	{"highway=bus_stop", BusStop},
	{"railway=*", Railway},
	{"boundary=administrative", Boundary},
	{"power=line", PowerLine},
	{"barrier=fence", Fence},
	{"route=*", Route},

	{"amenity=restaurant", Restaurant},
	{"amenity=cafe", Cafe},
	{"amenity=bar", Bar},
	{"amenity=pub", Bar},
	{"amenity=fast_food", FastFood},
	{"amenity=fuel", Fuel},
	{"amenity=parking", Parking},
	{"amenity=hospital", Hospital},
	{"amenity=pharmacy", Pharmacy},
	{"amenity=school", School},
	{"amenity=bank", Bank},
	{"amenity=post_office", PostOffice},
	{"amenity=police", Police},
	{"amenity=place_of_worship", Church},
	{"amenity=toilets", Toilets},
	{"tourism=hotel", Hotel},
	{"tourism=motel", Hotel},
	{"tourism=camp_site", Campground},
	{"tourism=museum", Museum},
	{"tourism=viewpoint", Viewpoint},
	{"shop=supermarket", Supermarket},
	{"shop=convenience", Supermarket},
	{"shop=*", Shop},
	{"place=city", City},
	{"place=town", Town},
	{"place=village", Village},
	{"aeroway=aerodrome", Airport},
})

// osmKeys is the order in which tag keys are consulted.
var osmKeys = []string{
	"natural", "place", "water", "waterway", "amenity", "shop", "tourism",
	"leisure", "landuse", "building", "highway", "railway", "boundary",
	"power", "barrier", "aeroway", "route",
}

// OSMClass resolves the class of an element from its tags, trying
// "key=value" before "key=*" for every key in priority order.
func OSMClass(tags osm.Tags) (string, bool) {
	for _, key := range osmKeys {
		value := tags.Find(key)
		if value == "" {
			continue
		}
		if c, ok := OSM.Class(key + "=" + value); ok {
			return c, true
		}
		if c, ok := OSM.Class(key + "=*"); ok {
			return c, true
		}
	}
	return "", false
}

// OSMTag returns the tag a class exports to. Wildcard entries export as
// "yes".
func OSMTag(class string) (osm.Tag, bool) {
	native, ok := OSM.Native(class)
	if !ok {
		return osm.Tag{}, false
	}
	key, value, found := strings.Cut(native, "=")
	if !found {
		return osm.Tag{}, false
	}
	if value == "*" {
		value = "yes"
	}
	return osm.Tag{Key: key, Value: value}, true
}
