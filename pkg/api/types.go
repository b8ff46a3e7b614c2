package api

// Wire types for the Evolution Mapper backend. Every scalar uses a Flex*
// type (see flexible.go) because the backend wraps most values in
// single-element arrays.

// SpeciesRecord is one hit from the fuzzy species search.
type SpeciesRecord struct {
	Common      FlexString `json:"common"`
	Scientific  FlexString `json:"scientific"`
	HasDatelife FlexBool   `json:"has_datelife"`
}

type speciesSearchResponse struct {
	Species []SpeciesRecord `json:"species"`
}

type randomSpeciesResponse struct {
	Success         FlexBool `json:"success"`
	SelectedSpecies *struct {
		CommonNames     FlexStrings `json:"common_names"`
		ScientificNames FlexStrings `json:"scientific_names"`
		HasDatelife     []FlexBool  `json:"has_datelife"`
	} `json:"selected_species"`
	HTML  FlexString `json:"html"`
	Error FlexString `json:"error"`
}

type tokenResponse struct {
	Success FlexBool   `json:"success"`
	Token   FlexString `json:"token"`
	Error   FlexString `json:"error"`
}

type wireStep struct {
	Step                 FlexString `json:"step"`
	Status               FlexString `json:"status"`
	Timestamp            FlexString `json:"timestamp"`
	DurationSeconds      FlexFloat  `json:"duration_seconds"`
	TotalDurationSeconds FlexFloat  `json:"total_duration_seconds"`
}

type progressResponse struct {
	Status FlexString `json:"status"`
	Steps  []wireStep `json:"steps"`
}

// WireNode is the recursive tree node as the backend serializes it.
type WireNode struct {
	NodeLabel    FlexString     `json:"node_label"`
	NodeType     FlexString     `json:"node_type"`
	Color        FlexString     `json:"color"`
	HasAge       FlexBool       `json:"has_age"`
	AgeInfo      FlexString     `json:"age_info"`
	AgeNumeric   FlexFloat      `json:"age_numeric"`
	NodeShape    FlexString     `json:"node_shape"`
	PhylopicUUID FlexString     `json:"phylopic_uuid"`
	PhylopicURL  FlexString     `json:"phylopic_url"`
	InfoPanel    *WireInfoPanel `json:"info_panel"`
	Children     []*WireNode    `json:"children"`
}

// WireInfoPanel carries the optional per-node encyclopedia content.
type WireInfoPanel struct {
	ImageURL         FlexString `json:"image_url"`
	ImageType        FlexString `json:"image_type"`
	ImageAttribution FlexString `json:"image_attribution"`
	WikipediaText    FlexString `json:"wikipedia_text"`
	WikipediaURL     FlexString `json:"wikipedia_url"`
	WikipediaTitle   FlexString `json:"wikipedia_title"`
	GeologicAge      FlexString `json:"geologic_age"`
}

type treeResponse struct {
	Success             FlexBool    `json:"success"`
	HTML                FlexString  `json:"html"`
	TreeJSON            *WireNode   `json:"tree_json"`
	Coverage            FlexString  `json:"coverage"`
	MissingCommonNames  FlexStrings `json:"missing_common_names"`
	MissingSciNames     FlexStrings `json:"missing_scientific_names"`
	DroppedCommonNames  FlexStrings `json:"dropped_common_names"`
	LegendType          FlexString  `json:"legend_type"`
	Error               FlexString  `json:"error"`
}

type wireLegendEntry struct {
	NodeType     FlexString        `json:"node_type"`
	Label        FlexString        `json:"label"`
	Color        FlexString        `json:"color"`
	ColorName    FlexString        `json:"color_name"`
	Description  FlexString        `json:"description"`
	Shape        FlexString        `json:"shape"`
	PhylopicData *wirePhylopicData `json:"phylopic_data"`
}

type wirePhylopicData struct {
	DataURL        FlexString `json:"data_url"`
	TaxonomicGroup FlexString `json:"taxonomic_group"`
	Attribution    FlexString `json:"attribution"`
}

type legendResponse struct {
	Success FlexBool                   `json:"success"`
	Type    FlexString                 `json:"type"`
	Legend  map[string]wireLegendEntry `json:"legend"`
	Error   FlexString                 `json:"error"`
}

// phylopicEnvelope covers the several field names observed for the image
// payload across backend versions. Exactly one is usually set.
type phylopicEnvelope struct {
	Success FlexBool   `json:"success"`
	DataURL FlexString `json:"data_url"`
	Image   FlexString `json:"image"`
	Data    FlexString `json:"data"`
	PNG     FlexString `json:"png"`
	Error   FlexString `json:"error"`
}

type citationsResponse struct {
	Success   FlexBool   `json:"success"`
	Citations []Citation `json:"citations"`
}

// Citation is one scholarly acknowledgement entry.
type Citation struct {
	Title   FlexString `json:"title"`
	Authors FlexString `json:"authors"`
	Journal FlexString `json:"journal"`
	Year    FlexString `json:"year"`
	URL     FlexString `json:"url"`
	DOI     FlexString `json:"doi"`
}

type attributionsResponse struct {
	Success      FlexBool      `json:"success"`
	Attributions []Attribution `json:"attributions"`
}

// Attribution credits an image or data source (PhyloPic contributors etc).
type Attribution struct {
	Name    FlexString `json:"name"`
	Creator FlexString `json:"creator"`
	License FlexString `json:"license"`
	URL     FlexString `json:"url"`
}
