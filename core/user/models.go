package user

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
)

type Role string

const (
	RoleParent  Role = "parent"
	RoleTeacher Role = "teacher"
)

func (r Role) Valid() bool { return r == RoleParent || r == RoleTeacher }

var ErrInvalidRole = errors.New("invalid role")

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", errors.Wrap(ErrInvalidRole, s)
	}
	return r, nil
}

// Account is the profile of a signed-up user, keyed by the identity uid.
type Account struct {
	UID       string `json:"uid"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ChildID   string `json:"childId,omitempty"` // parents only
	Avatar    string `json:"avatar,omitempty"`  // base64 image
}

func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

func (a Account) IsParent() bool  { return a.Role == RoleParent }
func (a Account) IsTeacher() bool { return a.Role == RoleTeacher }

// AvatarBytes decodes the avatar, accepting data URLs ("data:image/png;base64,...").
func (a Account) AvatarBytes() ([]byte, error) {
	if a.Avatar == "" {
		return nil, nil
	}
	data := a.Avatar
	if i := strings.Index(data, "base64,"); i >= 0 {
		data = data[i+len("base64,"):]
	}
	return base64.StdEncoding.DecodeString(data)
}

// SetAvatar stores img base64 encoded. An empty img removes the avatar.
func (a *Account) SetAvatar(img []byte) {
	if len(img) == 0 {
		a.Avatar = ""
		return
	}
	a.Avatar = base64.StdEncoding.EncodeToString(img)
}

// Viewer is who a role-scoped list is loaded for: a parent sees their child's
// records, a teacher sees what they entered for one class.
type Viewer struct {
	Role    Role
	UserID  string
	ChildID string // parent: the child's student id
	ClassID string // teacher: the class taught; parent: the child's class
}

func NewParentViewer(parentID, childID, childClassID string) Viewer {
	return Viewer{Role: RoleParent, UserID: parentID, ChildID: childID, ClassID: childClassID}
}

func NewTeacherViewer(teacherID, classID string) Viewer {
	return Viewer{Role: RoleTeacher, UserID: teacherID, ClassID: classID}
}

// ErrChildNotFound is returned for a parent account whose child is not (or no longer) registered.
var ErrChildNotFound = core.NewNotFoundError("child", "")
