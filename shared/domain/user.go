package domain

// User is a board participant. Identity is deliberately thin: a uuid minted
// at join time plus a display name. There are no accounts.
type User struct {
	Id   UserId
	Name UserName
}
