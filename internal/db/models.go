package db

import (
	"encoding/json"
	"time"
)

// Report maps reports.reports. Location fields are already geocoded upstream;
// quality fields are written only by scoring runs.
type Report struct {
	ReportID           int64           `gorm:"column:report_id;primaryKey;autoIncrement"`
	ReportUUID         string          `gorm:"column:report_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Title              string          `gorm:"column:title;type:text;not null"`
	Description        string          `gorm:"column:description;type:text;not null;default:''"`
	EventDate          *time.Time      `gorm:"column:event_date;type:timestamptz"`
	EventDatePrecision string          `gorm:"column:event_date_precision;type:text;not null;default:unknown"`
	Latitude           *float64        `gorm:"column:latitude;type:double precision"`
	Longitude          *float64        `gorm:"column:longitude;type:double precision"`
	City               string          `gorm:"column:city;type:text;not null;default:''"`
	State              string          `gorm:"column:state;type:text;not null;default:''"`
	Country            string          `gorm:"column:country;type:text;not null;default:''"`
	Landmark           string          `gorm:"column:landmark;type:text;not null;default:''"`
	WitnessCount       int             `gorm:"column:witness_count;type:integer;not null;default:0"`
	WitnessNamed       bool            `gorm:"column:witness_named;not null;default:false"`
	WitnessProfession  string          `gorm:"column:witness_profession;type:text;not null;default:''"`
	HasPhotoVideo      bool            `gorm:"column:has_photo_video;not null;default:false"`
	HasPhysical        bool            `gorm:"column:has_physical_evidence;not null;default:false"`
	HasOfficialReport  bool            `gorm:"column:has_official_report;not null;default:false"`
	Tags               json.RawMessage `gorm:"column:tags;type:jsonb"`
	CategoryLinks      json.RawMessage `gorm:"column:category_links;type:jsonb"`
	SourceType         string          `gorm:"column:source_type;type:text;not null;default:user_submission"`
	Status             string          `gorm:"column:status;type:text;not null;default:pending"`
	QualityScore       *int            `gorm:"column:quality_score;type:integer"`
	QualityGrade       string          `gorm:"column:quality_grade;type:text;not null;default:''"`
	ScorerVersion      string          `gorm:"column:scorer_version;type:text;not null;default:''"`
	Fingerprint        string          `gorm:"column:fingerprint;type:text;not null;default:''"`
	DescriptionLang    string          `gorm:"column:description_lang;type:text;not null;default:''"`
	ScoredAt           *time.Time      `gorm:"column:scored_at;type:timestamptz"`
	CreatedAt          time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Report) TableName() string { return "reports.reports" }

// DuplicateCandidate maps reports.duplicate_candidates. ReportAID is always the
// smaller id of the pair, so (A,B) and (B,A) resolve to the same row.
type DuplicateCandidate struct {
	CandidateID   int64      `gorm:"column:candidate_id;primaryKey;autoIncrement"`
	CandidateUUID string     `gorm:"column:candidate_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	ReportAID     int64      `gorm:"column:report_a_id;type:bigint;not null;uniqueIndex:idx_candidate_pair,priority:1"`
	ReportBID     int64      `gorm:"column:report_b_id;type:bigint;not null;uniqueIndex:idx_candidate_pair,priority:2"`
	MatchKind     string     `gorm:"column:match_kind;type:text;not null;default:fuzzy"`
	TitleScore    float64    `gorm:"column:title_score;type:double precision;not null;default:0"`
	LocationScore float64    `gorm:"column:location_score;type:double precision;not null;default:0"`
	DateScore     float64    `gorm:"column:date_score;type:double precision;not null;default:0"`
	ContentScore  float64    `gorm:"column:content_score;type:double precision;not null;default:0"`
	Confidence    float64    `gorm:"column:confidence;type:double precision;not null;default:0"`
	Status        string     `gorm:"column:status;type:text;not null;default:pending"`
	RunID         *int64     `gorm:"column:run_id;type:bigint"`
	ReviewedBy    string     `gorm:"column:reviewed_by;type:text;not null;default:''"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at;type:timestamptz"`
	CreatedAt     time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (DuplicateCandidate) TableName() string { return "reports.duplicate_candidates" }

// ScoringRun maps reports.scoring_runs.
type ScoringRun struct {
	RunID             int64           `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID           string          `gorm:"column:run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Kind              string          `gorm:"column:kind;type:text;not null"`
	Status            string          `gorm:"column:status;type:text;not null;default:pending"`
	StartedAt         *time.Time      `gorm:"column:started_at;type:timestamptz"`
	CompletedAt       *time.Time      `gorm:"column:completed_at;type:timestamptz"`
	ReportsProcessed  int             `gorm:"column:reports_processed;type:integer;not null;default:0"`
	ReportsFailed     int             `gorm:"column:reports_failed;type:integer;not null;default:0"`
	CandidatesCreated int             `gorm:"column:candidates_created;type:integer;not null;default:0"`
	ScorerVersion     string          `gorm:"column:scorer_version;type:text;not null;default:''"`
	Checkpoint        json.RawMessage `gorm:"column:checkpoint;type:jsonb"`
	ErrorMessage      *string         `gorm:"column:error_message;type:text"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ScoringRun) TableName() string { return "reports.scoring_runs" }

// CorpusTerm maps reports.corpus_terms, the externally maintained document
// frequency table behind the IDF snapshot.
type CorpusTerm struct {
	Term              string    `gorm:"column:term;type:text;primaryKey"`
	DocumentFrequency int64     `gorm:"column:document_frequency;type:bigint;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (CorpusTerm) TableName() string { return "reports.corpus_terms" }

// SourceProvenance maps reports.source_provenance, the externally maintained
// provenance tier table.
type SourceProvenance struct {
	SourceType       string    `gorm:"column:source_type;type:text;primaryKey"`
	Tier             string    `gorm:"column:tier;type:text;not null"`
	ReliabilityScore float64   `gorm:"column:reliability_score;type:double precision;not null;default:0"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (SourceProvenance) TableName() string { return "reports.source_provenance" }

func autoMigrateModels() []any {
	return []any{
		&Report{},
		&DuplicateCandidate{},
		&ScoringRun{},
		&CorpusTerm{},
		&SourceProvenance{},
	}
}
