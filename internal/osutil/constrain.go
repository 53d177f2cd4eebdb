// Package osutil wraps the OS-level privilege downgrade a network daemon needs once its listening
// socket is open: drop to an unprivileged uid/gid and chroot into a near-empty directory. setuid and
// setgid are no-ops on Linux; see allowed_linux.go.
package osutil

import (
	"fmt"
	"golang.org/x/sys/unix"
	"os"
	"os/user"
	"strconv"
	"strings"
)

const errPrefix = "osutil.Constrain: "

// Constrain downgrades the process to the named uid/gid and chroots it into chrootDir. Any
// parameter left as an empty string skips that step.
//
// Order matters: symbolic names are resolved to numeric ids first, while /etc/passwd is still
// reachable; then chroot, while the process still has the privilege to perform it; then setgid
// (dropping supplementary groups along with it); then setuid last, since that's the step that makes
// the whole sequence irreversible.
func Constrain(userName, groupName, chrootDir string) error {
	uid := -1
	gid := -1
	if len(userName) > 0 {
		u, err := user.Lookup(userName)
		if err != nil {
			return fmt.Errorf(errPrefix+"Lookup failed: %s", err.Error())
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return fmt.Errorf(errPrefix+"Could not convert UID %s to an int: %s",
				u.Uid, err.Error())
		}
	}

	if len(groupName) > 0 {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return fmt.Errorf(errPrefix+"Could not look up group: %s: %s", groupName, err.Error())
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return fmt.Errorf(errPrefix+"Could not convert GID %s to an int: %s",
				g.Gid, err.Error())
		}
	}

	if len(chrootDir) > 0 {
		if err := os.Chdir(chrootDir); err != nil {
			return fmt.Errorf(errPrefix+"Could not cd to %s: %s", chrootDir, err.Error())
		}
		if err := unix.Chroot(chrootDir); err != nil {
			return fmt.Errorf(errPrefix+"Could not chroot to %s: %s", chrootDir, err.Error())
		}
		if err := os.Chdir("/"); err != nil {
			return fmt.Errorf(errPrefix+"Could not cd to /: %s", err.Error())
		}
	}

	if gid != -1 {
		if !setgidAllowed {
			fmt.Println("WARNING: Go setgid() disabled for Linux. This process remains priviledged.")
		} else {
			if err := unix.Setgroups([]int{}); err != nil {
				return fmt.Errorf(errPrefix+"Could not clear group list: %s", err.Error())
			}
			if err := unix.Setgid(gid); err != nil {
				return fmt.Errorf(errPrefix+"Could not setgid to %d/%s: %s",
					gid, groupName, err.Error())
			}
		}
	}

	if uid != -1 {
		if !setuidAllowed {
			fmt.Println("WARNING: Go setuid() disabled for Linux. This process remains priviledged.")
		} else if err := unix.Setuid(uid); err != nil {
			return fmt.Errorf(errPrefix+"Could not setuid to %d/%s: %s",
				uid, userName, err.Error())
		}
	}

	return nil
}

// ConstraintReport renders the process's current uid/gid/groups/cwd, for logging right after
// Constrain so an operator can confirm the downgrade took effect.
func ConstraintReport() string {
	uid := os.Getuid()
	gid := os.Getgid()
	cwd, _ := os.Getwd()

	groups, _ := os.Getgroups()
	groupStrs := make([]string, 0, len(groups))
	for _, g := range groups {
		groupStrs = append(groupStrs, fmt.Sprintf("%d", g))
	}

	return fmt.Sprintf("uid=%d gid=%d (%s) cwd=%s", uid, gid, strings.Join(groupStrs, ","), cwd)
}
