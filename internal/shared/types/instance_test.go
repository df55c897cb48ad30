package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInstanceDataAccessors(t *testing.T) {
	now := time.Now()
	chrome := NewInstance(&Application{ID: "mail", Type: TypeChromeApp}, "bob", 1, ChromeAppInstanceData{
		AppKey:              "mail.example.com",
		AppURL:              "https://mail.example.com",
		ExpectedWindowTitle: "mail.example.com",
	}, now)

	assert.Equal(t, "mail.example.com", chrome.ChromeAppKey())
	assert.Equal(t, "mail.example.com", chrome.ExpectedWindowTitle())
	assert.Equal(t, "https://mail.example.com", chrome.WebURL())
	assert.Empty(t, chrome.FolderPath())
	assert.Empty(t, chrome.PackageName())

	folder := NewInstance(&Application{ID: "docs"}, "bob", 2, FolderInstanceData{Path: "/srv/docs"}, now)
	assert.Equal(t, "/srv/docs", folder.FolderPath())
	assert.Empty(t, folder.WebURL())

	droid := NewInstance(&Application{ID: "a"}, "bob", 3, AndroidInstanceData{PackageName: "com.example.app"}, now)
	assert.Equal(t, "com.example.app", droid.PackageName())

	web := NewInstance(&Application{ID: "w"}, "bob", 4, WebInstanceData{URL: "https://x.test", SessionID: "sess_1", Embedded: true}, now)
	assert.Equal(t, "https://x.test", web.WebURL())
	assert.Equal(t, "sess_1", web.SessionID())
}

func TestInstanceDataKinds(t *testing.T) {
	assert.Equal(t, TypeDesktop, DesktopInstanceData{}.Kind())
	assert.Equal(t, TypeChromeApp, ChromeAppInstanceData{}.Kind())
	assert.Equal(t, TypeWeb, WebInstanceData{}.Kind())
	assert.Equal(t, TypeFolder, FolderInstanceData{}.Kind())
	assert.Equal(t, TypeAndroid, AndroidInstanceData{}.Kind())
}

func TestCloneIsIndependent(t *testing.T) {
	now := time.Now()
	app := &Application{ID: "calc"}
	inst := NewInstance(app, "alice", 10, nil, now)
	inst.Window = &WindowInfo{Handle: 5, Title: "Calculator"}

	c := inst.Clone()
	c.Window.Title = "changed"
	c.MemoryUsageMB = 99

	assert.Equal(t, "Calculator", inst.Window.Title)
	assert.Zero(t, inst.MemoryUsageMB)
	assert.Same(t, app, c.Application)
}

func TestNilApplicationAccessors(t *testing.T) {
	inst := &ApplicationInstance{}
	assert.Empty(t, inst.ApplicationID())
	assert.Empty(t, inst.ApplicationName())
	assert.Empty(t, string(inst.Type()))
}

func TestParseHelpers(t *testing.T) {
	typ, err := ParseApplicationType("APK")
	assert.NoError(t, err)
	assert.Equal(t, TypeAndroid, typ)

	_, err = ParseApplicationType("spaceship")
	assert.Error(t, err)

	role, err := ParseRole("admin")
	assert.NoError(t, err)
	assert.True(t, role.Allows(RolePowerUser))
	assert.False(t, RoleGuest.Allows(RoleUser))

	policy, err := ParseInstancePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, PolicyMultiple, policy)

	assert.Equal(t, PolicyMultiple, (&Application{}).Policy())
}
