// Package objects 组装对象管理运行时
//
// 示例：
//
//	err := objects.Run(
//	    core.WithSettings(func(b *config.SettingsBuilder) { b.AddYamlFile("Objects.yaml") }),
//	    core.Provide("Greeter", NewGreeter),
//	    core.WithObjectSettings("objects"),
//	    session.New(session.UseMemory()),
//	    web.New(web.WithControllers("GreetingController"), web.WithSessions()),
//	)
package objects

import "github.com/gocrud/objects/core"

// New 应用所有选项并构建运行时，不启动生命周期
func New(opts ...core.Option) (*core.Runtime, error) {
	rt := core.NewRuntime()
	if err := rt.Apply(opts...); err != nil {
		return nil, err
	}
	if err := rt.Build(); err != nil {
		return nil, err
	}
	return rt, nil
}
