package vkgfx

import (
	"github.com/andewx/nxshell/gfx"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// newError converts a failed result into a gfx.BackendError named after the
// call that produced it. Success yields nil.
func newError(ret vk.Result, call string) error {
	if ret == vk.Success {
		return nil
	}
	return gfx.NewBackendError(call, int(ret), vk.Error(ret).Error())
}

func orPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// checkErr turns a panic raised by orPanic back into an error.
func checkErr(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
			return
		}
		*err = errors.Errorf("%+v", v)
	}
}
