package db

// Repositories provides access to all database repositories
type Repositories struct {
	db *DB

	Channels      *ChannelRepository
	Media         *MediaRepository
	Collections   *CollectionRepository
	ScheduleItems *ScheduleItemRepository
	FillerPresets *FillerPresetRepository
	Playouts      *PlayoutRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		db:            db,
		Channels:      NewChannelRepository(db),
		Media:         NewMediaRepository(db),
		Collections:   NewCollectionRepository(db),
		ScheduleItems: NewScheduleItemRepository(db),
		FillerPresets: NewFillerPresetRepository(db),
		Playouts:      NewPlayoutRepository(db),
	}
}

// DB returns the connection the repositories share
func (r *Repositories) DB() *DB {
	return r.db
}
