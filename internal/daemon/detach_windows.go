//go:build windows

package daemon

import "syscall"

const detachedProcess = 0x00000008 // DETACHED_PROCESS

func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
		HideWindow:    true,
	}
}
