package models

const (
	RoleClient = "client"
	RoleWorker = "worker"
)

// Account is either a ClientAccount or a WorkerAccount. The role is derived
// from which variant is held, never from a stored flag.
type Account interface {
	Owner() User
	Role() string
	account()
}

type ClientAccount struct {
	User User
}

func (a ClientAccount) Owner() User  { return a.User }
func (a ClientAccount) Role() string { return RoleClient }
func (ClientAccount) account()       {}

type WorkerAccount struct {
	User    User
	Profile Worker
}

func (a WorkerAccount) Owner() User  { return a.User }
func (a WorkerAccount) Role() string { return RoleWorker }
func (WorkerAccount) account()       {}
