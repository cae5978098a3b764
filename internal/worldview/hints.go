package worldview

// keywordHint boosts layers whose id or title contains one of Patterns when
// Keyword appears in a query phrase.
type keywordHint struct {
	Keyword  string
	Patterns []string
}

// keywordHints is scanned in declaration order. Every matching (keyword,
// pattern) pair contributes to a layer's score, so "fire" and "fires" both
// fire for the phrase "fires".
var keywordHints = []keywordHint{
	{"fire", []string{"Thermal_Anomalies", "Fires", "FIRMS", "VIIRS", "MODIS"}},
	{"fires", []string{"Thermal_Anomalies", "Fires", "FIRMS", "VIIRS", "MODIS"}},
	{"smoke", []string{"Aerosol", "AOD", "Smoke"}},
	{"aerosol", []string{"Aerosol", "AOD", "OMI", "VIIRS", "MODIS"}},
	{"aod", []string{"AOD", "Aerosol"}},
	{"dust", []string{"Dust", "Aerosol", "AI"}},
	{"snow", []string{"Snow", "Snow_Cover", "SC"}},
	{"sst", []string{"Sea_Surface_Temperature", "SST", "GHRSST", "VIIRS"}},
	{"temperature", []string{"Temperature", "SST"}},
	{"true color", []string{TrueColorMarker}},
	{"flood", []string{"Flood", "Surface_Water", "Water_Extent"}},
	{"flooding", []string{"Flood", "Surface_Water", "Water_Extent"}},
}

// offlineGroup maps a set of trigger keywords to the single layer id it
// contributes when the catalog cannot be consulted.
type offlineGroup struct {
	Keywords []string
	LayerID  string
}

// offlineGroups is evaluated in order; the order is the order of the result.
var offlineGroups = []offlineGroup{
	{[]string{"fire", "fires", "wildfire", "wildfires"}, "MODIS_Terra_Thermal_Anomalies_Night"},
	{[]string{"smoke", "aerosol", "aod", "haze", "plume"}, "MODIS_Terra_Aerosol"},
	{[]string{"snow", "snow cover", "ice", "glacier"}, "MODIS_Terra_Snow_Cover_Daily"},
	{[]string{"sst", "sea surface temperature", "sea-surface temperature", "ocean temp"}, "GHRSST_L4_MUR_Sea_Surface_Temperature"},
	{[]string{"ash", "volcanic", "volcano", "so2"}, "OMI_SO2_Column_Amount"},
	{[]string{"flood", "flooding", "surface water", "water extent", "inundation"}, "VIIRS_SNPP_Flood_Water_Composite"},
	{[]string{"dust", "sand", "blowing dust"}, "OMI_Aerosol_Index"},
}

// placeBBox is a named region with its lonW,latS,lonE,latN extent.
type placeBBox struct {
	Name string
	BBox string
}

// placeHints is matched first-declared-wins; it is not ordered by specificity.
var placeHints = []placeBBox{
	{"bangladesh", "87,20,93,27"},
	{"california", "-130,32,-114,43"},
	{"greece", "18,34,30,42"},
	{"sahara", "-20,15,30,35"},
	{"amazon", "-75,-15,-45,5"},
	{"philippines", "117,5,127,21"},
	{"western canada", "-140,45,-110,65"},
	{"alps", "5,43,15,48"},
	{"japan", "128,30,148,46"},
	{"iceland", "-26,62,-12,68"},
	{"middle east", "30,12,60,38"},
	{"northern india", "74,22,87,32"},
	{"eastern europe", "18,44,40,56"},
	{"portugal", "-10,36,-5,43"},
	{"gulf of mexico", "-97,18,-81,30"},
}
