package domain

// PullResult - только успешно примененные записи; все остальное - в Errors и Log
type PullResult struct {
	ParsedProjects []ParsedDuAnData   `json:"parsed_projects"`
	ParsedLayouts  []ParsedLayoutData `json:"parsed_layouts"`
	Projects       []Project          `json:"projects"`
	Layouts        []Layout           `json:"layouts"`
	Errors         []SyncError        `json:"errors"`
	Log            *SyncLogEntry      `json:"log"`
}

// PushResult - итог выгрузки БД в таблицу
type PushResult struct {
	Written   int           `json:"written"`
	Unchanged int           `json:"unchanged"`
	Conflicts int           `json:"conflicts"`
	Errors    []SyncError   `json:"errors"`
	Log       *SyncLogEntry `json:"log"`
}
