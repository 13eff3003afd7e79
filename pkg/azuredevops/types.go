package azuredevops

// BuildDefinition is the pipeline definition metadata.
type BuildDefinition struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Process struct {
		YamlFilename string `json:"yamlFilename"`
	} `json:"process"`
}

// Build is one pipeline run.
type Build struct {
	ID          int    `json:"id"`
	BuildNumber string `json:"buildNumber"`
	Result      string `json:"result"`
	Status      string `json:"status"`
}

type buildList struct {
	Count int     `json:"count"`
	Value []Build `json:"value"`
}

// Timeline is the per-step execution record of one build.
type Timeline struct {
	Records []TimelineRecord `json:"records"`
}

// TimelineRecord is one timeline entry; Type "Task" entries carry a log
// reference.
type TimelineRecord struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Result string `json:"result"`
	Log    *struct {
		ID int `json:"id"`
	} `json:"log"`
}
