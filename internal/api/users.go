package api

import "context"

const usersPath = "/api/users"

// User is a console account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Role     string `json:"role"`
}

// NewUser is the registration payload.
type NewUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
	Role     string `json:"role"`
}

// UserService manages accounts.
type UserService struct {
	d Doer
}

// NewUserService creates a UserService.
func NewUserService(d Doer) *UserService {
	return &UserService{d: d}
}

func (s *UserService) List(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := get(ctx, s.d, usersPath, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := get(ctx, s.d, idPath(usersPath, id), &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Register creates an account and returns its id.
func (s *UserService) Register(ctx context.Context, u NewUser) (int64, error) {
	var out struct {
		UserID int64 `json:"userId"`
	}
	if err := post(ctx, s.d, usersPath, u, &out); err != nil {
		return 0, err
	}
	return out.UserID, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return del(ctx, s.d, idPath(usersPath, id))
}
