package model

// Pool holds the metadata the booking engine needs about a swimming
// pool: its identity, its daily operating window and whether it is
// currently open for business.  Pool CRUD itself lives with an external
// collaborator; this engine only reads pools.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the pool.
//  OpenTime  – daily opening time ("15:04", UTC).
//  CloseTime – daily closing time ("15:04", UTC).
//  IsActive  – inactive pools get no generated sessions.
type Pool struct {
	ID        uint64 // pools.id
	Name      string // pools.name
	OpenTime  string // pools.open_time
	CloseTime string // pools.close_time
	IsActive  bool   // pools.is_active
}

// Member is the minimal snapshot of a member this engine consumes from
// the external identity service.  CanSwim backs the swimming-ability
// requirement some packages carry.
type Member struct {
	ID       uint64 // members.id
	FullName string // members.full_name
	IsActive bool   // members.is_active
	CanSwim  bool   // members.can_swim
}
