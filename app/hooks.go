package app

import (
	"context"
	"errors"
	"fmt"
)

// Phase 生命周期阶段.
type Phase int

const (
	BeforeStart Phase = iota
	AfterStart
	BeforeStop
	AfterStop
)

var phaseNames = [...]string{"before_start", "after_start", "before_stop", "after_stop"}

// String 返回阶段名称.
func (p Phase) String() string {
	if p < BeforeStart || p > AfterStop {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Hook 生命周期钩子函数.
type Hook func(ctx context.Context) error

// Hooks 按阶段分组的钩子.
//
// BeforeStart 中任一钩子失败即中止启动；其余阶段的钩子全部执行，错误合并返回.
type Hooks struct {
	byPhase [AfterStop + 1][]Hook
}

// run 执行某阶段的钩子，nil Hooks 视为空.
func (h *Hooks) run(ctx context.Context, phase Phase) error {
	if h == nil {
		return nil
	}
	var errs []error
	for _, hook := range h.byPhase[phase] {
		if err := hook(ctx); err != nil {
			err = fmt.Errorf("app: %s hook: %w", phase, err)
			if phase == BeforeStart {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len 返回某阶段的钩子数量.
func (h *Hooks) Len(phase Phase) int {
	if h == nil {
		return 0
	}
	return len(h.byPhase[phase])
}

// HooksBuilder 钩子构建器.
type HooksBuilder struct {
	hooks *Hooks
}

// NewHooks 创建钩子构建器.
func NewHooks() *HooksBuilder {
	return &HooksBuilder{hooks: &Hooks{}}
}

// On 在指定阶段添加钩子.
func (b *HooksBuilder) On(phase Phase, hook Hook) *HooksBuilder {
	b.hooks.byPhase[phase] = append(b.hooks.byPhase[phase], hook)
	return b
}

// BeforeStart 添加启动前钩子.
func (b *HooksBuilder) BeforeStart(hook Hook) *HooksBuilder {
	return b.On(BeforeStart, hook)
}

// AfterStart 添加启动后钩子.
func (b *HooksBuilder) AfterStart(hook Hook) *HooksBuilder {
	return b.On(AfterStart, hook)
}

// BeforeStop 添加停止前钩子.
func (b *HooksBuilder) BeforeStop(hook Hook) *HooksBuilder {
	return b.On(BeforeStop, hook)
}

// AfterStop 添加停止后钩子.
func (b *HooksBuilder) AfterStop(hook Hook) *HooksBuilder {
	return b.On(AfterStop, hook)
}

// Build 构建钩子.
func (b *HooksBuilder) Build() *Hooks {
	return b.hooks
}
