package domain

// PartyKind - кто стоит за соединением
type PartyKind string

const (
	PartyUser   PartyKind = "user"
	PartyDriver PartyKind = "driver"
)

// Identity - сторона, зарегистрированная на соединении
type Identity struct {
	Kind PartyKind `json:"kind"`
	ID   string    `json:"id"`
}

// Principal - проверенный JWT, предъявленный при upgrade.
// Пустой UserID - анонимное соединение.
type Principal struct {
	UserID string
	Role   string
}

func (p Principal) Anonymous() bool { return p.UserID == "" }
