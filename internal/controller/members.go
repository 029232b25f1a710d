package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angeloszaimis/exception-flow/internal/apperr"
	"github.com/angeloszaimis/exception-flow/internal/respond"
)

// Member ids that make the lookup fail.
const (
	IDUnexpected      = "ex"
	IDInvalidArgument = "bad"
	IDUser            = "user-ex"
)

type MemberDto struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
}

// Profile holds what differs between the API versions serving members.
type Profile struct {
	NamePrefix        string
	UnexpectedMessage string
	BadMessage        string
	UserMessage       string
}

// APIProfile backs /api, answered by the resolver chain.
var APIProfile = Profile{
	NamePrefix:        "test-member-",
	UnexpectedMessage: "wrong user",
	BadMessage:        "wrong url",
	UserMessage:       "user error occurs!!",
}

// API2Profile backs /api2, answered by the structured mapper.
var API2Profile = Profile{
	NamePrefix:        "hello ",
	UnexpectedMessage: "wrong user",
	BadMessage:        "wrong input value",
	UserMessage:       "user exception",
}

type MembersController struct {
	profile Profile
}

func NewMembersController(profile Profile) *MembersController {
	return &MembersController{profile: profile}
}

func (c *MembersController) Lookup(id string) (MemberDto, error) {
	switch id {
	case IDUnexpected:
		return MemberDto{}, apperr.Unexpected(c.profile.UnexpectedMessage)
	case IDInvalidArgument:
		return MemberDto{}, apperr.InvalidArgument(c.profile.BadMessage)
	case IDUser:
		return MemberDto{}, apperr.User(c.profile.UserMessage)
	}
	return MemberDto{MemberID: id, Name: c.profile.NamePrefix + id}, nil
}

// GetMember serves GET .../members/{id}.
func (c *MembersController) GetMember(w http.ResponseWriter, r *http.Request) error {
	member, err := c.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	return respond.JSON(w, http.StatusOK, member)
}
