package scontext

import (
	"context"
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	got := New(ctx)
	if !reflect.DeepEqual(got, StartStopContext{parent: ctx}) {
		t.Errorf("New = %v, want parent-only value", got)
	}
}

func TestStartStopContext_Context(t *testing.T) {
	ctx := context.Background()
	var ctxRet context.Context
	tests := []struct {
		name string
		init func(t *testing.T) *StartStopContext

		want1 *context.Context
	}{
		{
			"New",
			func(t *testing.T) *StartStopContext {
				c := New(ctx)
				return &c
			},
			&ctx,
		},
		{
			"Started",
			func(t *testing.T) *StartStopContext {
				c := New(ctx)
				var err error
				ctxRet, err = c.Start()
				if err != nil {
					t.Errorf("Start failed with %v", err)
				}
				return &c
			},
			&ctxRet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver := tt.init(t)
			got1 := receiver.Context()

			if !reflect.DeepEqual(got1, *tt.want1) {
				t.Errorf("StartStopContext.Context got1 = %v, want1: %v", got1, tt.want1)
			}
		})
	}
}

func TestStartStopContext_Start(t *testing.T) {
	var ctxRet, ctxRet1, nilCtx context.Context
	tests := []struct {
		name    string
		init    func(t *testing.T) *StartStopContext
		inspect func(r *StartStopContext, t *testing.T) //inspects receiver after test run

		want1   *context.Context
		wantErr bool
	}{
		{
			"Normal",
			func(t *testing.T) *StartStopContext {
				c := New(context.Background())
				return &c
			},
			func(r *StartStopContext, t *testing.T) {
				ctxRet = r.Context()
				if r.cancel == nil {
					t.Errorf("context cancel is nil")
				}
				if ctxRet == r.parent {
					t.Errorf("internal context is parent context")
				}
			},
			&ctxRet,
			false,
		},
		{
			"Restart",
			func(t *testing.T) *StartStopContext {
				c := New(context.Background())
				var err error
				ctxRet1, err = c.Start()
				if err != nil {
					t.Errorf("context Start failed %v", err)
				}
				err = c.Stop()
				if err != nil {
					t.Errorf("context Stop failed %v", err)
				}
				return &c
			},
			func(r *StartStopContext, t *testing.T) {
				ctxRet = r.Context()
				if r.cancel == nil {
					t.Errorf("context cancel is nil")
				}
				if ctxRet == r.parent {
					t.Errorf("internal context is parent context")
				}
				if ctxRet == ctxRet1 {
					t.Errorf("internal context is previous context")
				}
			},
			&ctxRet,
			false,
		},
		{
			"Running",
			func(t *testing.T) *StartStopContext {
				c := New(context.Background())
				var err error
				ctxRet1, err = c.Start()
				if err != nil {
					t.Errorf("context start failed: %v", err)
				}
				return &c
			},
			func(r *StartStopContext, t *testing.T) {
				ctx := r.Context()
				if r.cancel == nil {
					t.Errorf("context cancel is nil")
				}
				if ctx != ctxRet1 {
					t.Errorf("internal context was modified")
				}
			},
			&nilCtx,
			true,
		},
		{
			"Cancelled",
			func(t *testing.T) *StartStopContext {
				ctx, cancel := context.WithCancel(context.Background())
				c := New(ctx)
				cancel()
				return &c
			},
			func(r *StartStopContext, t *testing.T) {
				if r.cancel != nil {
					t.Errorf("context cancel is not nil")
				}
			},
			&nilCtx,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver := tt.init(t)
			got1, err := receiver.Start()

			if tt.inspect != nil {
				tt.inspect(receiver, t)
			}

			if !reflect.DeepEqual(got1, *tt.want1) {
				t.Errorf("StartStopContext.Start got1 = %v, want1: %v", got1, tt.want1)
			}

			if (err != nil) != tt.wantErr {
				t.Fatalf("StartStopContext.Start error = %v, wantErr: %t", err, tt.wantErr)
			}
		})
	}
}

func TestStartStopContext_Stop(t *testing.T) {
	tests := []struct {
		name    string
		init    func(t *testing.T) *StartStopContext
		inspect func(r *StartStopContext, t *testing.T) //inspects receiver after test run

		wantErr bool
	}{
		{
			"Normal",
			func(t *testing.T) *StartStopContext {
				c := New(context.Background())
				return &c
			},
			nil,
			true,
		},
		{
			"Running",
			func(t *testing.T) *StartStopContext {
				c := New(context.Background())
				if _, err := c.Start(); err != nil {
					t.Errorf("context start failed: %v", err)
				}
				return &c
			},
			func(r *StartStopContext, t *testing.T) {
				if r.cancel != nil {
					t.Errorf("context cancel func not null")
				}
			},
			false,
		},
		{
			"Stopped",
			func(t *testing.T) *StartStopContext {
				c := New(context.Background())
				if _, err := c.Start(); err != nil {
					t.Errorf("context Start failed: %v", err)
				}
				if err := c.Stop(); err != nil {
					t.Errorf("context Stop failed: %v", err)
				}
				return &c
			},
			func(r *StartStopContext, t *testing.T) {
				if r.cancel != nil {
					t.Errorf("context cancel func not null")
				}
			},
			true,
		},
		{
			"Restarted",
			func(t *testing.T) *StartStopContext {
				c := New(context.Background())
				if _, err := c.Start(); err != nil {
					t.Errorf("context Start failed: %v", err)
				}
				if err := c.Stop(); err != nil {
					t.Errorf("context Stop failed: %v", err)
				}
				if _, err := c.Start(); err != nil {
					t.Errorf("context Start failed: %v", err)
				}
				return &c
			},
			func(r *StartStopContext, t *testing.T) {
				if r.cancel != nil {
					t.Errorf("context cancel func not null")
				}
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver := tt.init(t)
			err := receiver.Stop()

			if tt.inspect != nil {
				tt.inspect(receiver, t)
			}

			if (err != nil) != tt.wantErr {
				t.Fatalf("StartStopContext.Stop error = %v, wantErr: %t", err, tt.wantErr)
			}
		})
	}
}
