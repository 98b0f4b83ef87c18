package user

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/smancaringin/presensi/core"
	"github.com/smancaringin/presensi/core/attendance"
)

var (
	// errors
	ErrAuthenticationFailed = errors.New("authentication failed")
)

const adminName = "Administrator"

type Service struct {
	studentPIN   string
	adminPIN     string
	adminPINHash string
	roster       attendance.Roster
}

func NewService(conf *core.Config) *Service {
	return &Service{
		studentPIN:   conf.StudentPIN,
		adminPIN:     conf.AdminPIN,
		adminPINHash: conf.AdminPINHash,
		roster:       attendance.DefaultRoster(),
	}
}

// AuthenticateStudent checks the shared student PIN and that the claimed
// class is on the roster. Not a security boundary: the PIN only keeps
// outsiders from cluttering the log.
func (svc *Service) AuthenticateStudent(name, classID, pin string) (User, error) {
	name = core.CleanString(name)
	classID = core.CleanString(classID)
	if name == "" || !svc.roster.Contains(classID) {
		return User{}, ErrAuthenticationFailed
	}
	if subtle.ConstantTimeCompare([]byte(pin), []byte(svc.studentPIN)) != 1 {
		return User{}, ErrAuthenticationFailed
	}
	return User{Name: name, ClassID: classID, Role: RoleStudent}, nil
}

// AuthenticateAdmin checks the admin credentials. A bcrypt PIN hash set via
// `presensi-admin resetpin` takes precedence over the plain configured PIN.
func (svc *Service) AuthenticateAdmin(name, pin string) (User, error) {
	if !strings.EqualFold(core.CleanString(name), "admin") {
		return User{}, ErrAuthenticationFailed
	}
	if svc.adminPINHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(svc.adminPINHash), []byte(pin)); err != nil {
			return User{}, ErrAuthenticationFailed
		}
	} else if subtle.ConstantTimeCompare([]byte(pin), []byte(svc.adminPIN)) != 1 {
		return User{}, ErrAuthenticationFailed
	}
	return User{Name: adminName, ClassID: attendance.ClassAdmin, Role: RoleAdmin}, nil
}

// HashPIN bcrypt-hashes a PIN for the ADMIN_PIN_HASH setting.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
