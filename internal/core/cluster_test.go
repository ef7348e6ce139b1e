// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core_test

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/muemud/mue/internal/backend/memory"
	"github.com/muemud/mue/internal/backend/redis"
	"github.com/muemud/mue/internal/core"
	"github.com/muemud/mue/internal/object"
	"github.com/muemud/mue/internal/world"
)

// instanceFactory returns a new World attached to the shared backend.
type instanceFactory func() *core.World

var _ = Describe("Multi-instance coherency", func() {
	Context("over the memory backend", func() {
		clusterSpecs(func() (instanceFactory, func()) {
			b := memory.New()
			return func() *core.World {
				return core.New(b.Storage, b.PubSub, core.WithHasher(cheapHasher))
			}, func() {}
		})
	})

	Context("over the redis backend", func() {
		clusterSpecs(func() (instanceFactory, func()) {
			srv, err := miniredis.Run()
			Expect(err).NotTo(HaveOccurred())

			var clients []*redis.Backend
			factory := func() *core.World {
				b, err := redis.Connect(context.Background(), redis.Options{Addr: srv.Addr(), ConnectRetries: 1})
				Expect(err).NotTo(HaveOccurred())
				clients = append(clients, b)
				return core.New(b, b, core.WithHasher(cheapHasher))
			}
			return factory, func() {
				for _, c := range clients {
					_ = c.Close()
				}
				srv.Close()
			}
		})
	})
})

func clusterSpecs(setup func() (instanceFactory, func())) {
	var (
		ctx     context.Context
		a, b    *core.World
		cleanup func()
		god     *object.Player
		start   *object.Room
	)

	BeforeEach(func() {
		ctx = context.Background()
		var factory instanceFactory
		factory, cleanup = setup()

		a = factory()
		b = factory()
		Expect(a.Init(ctx)).To(Succeed())
		Expect(b.Init(ctx)).To(Succeed())

		root, err := object.CreateRootRoom(ctx, a, "The Void")
		Expect(err).NotTo(HaveOccurred())
		god, err = object.CreateRootPlayer(ctx, a, "God", "")
		Expect(err).NotTo(HaveOccurred())
		start, err = object.CreateRoom(ctx, a, "Town Square", god.ID(), root.ID(), world.EmptyID)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(a.Close(ctx)).To(Succeed())
		Expect(b.Close(ctx)).To(Succeed())
		cleanup()
	})

	It("counts both instances on the control channel", func() {
		Eventually(func() (uint, error) { return a.GetActiveServers(ctx) }).Should(Equal(uint(2)))
	})

	It("reloads a remote copy when the owner invalidates it", func() {
		remote, ok, err := b.GetObjectByID(ctx, start.ID(), world.KindRoom)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(remote.Name()).To(Equal("Town Square"))

		md := start.Meta().Base()
		md.Name = "Market"
		Expect(a.Storage().UpdateMeta(ctx, start.ID(), md)).To(Succeed())
		Expect(remote.Name()).To(Equal("Town Square"))

		_, err = a.Cache().Invalidate(ctx, start.ID())
		Expect(err).NotTo(HaveOccurred())
		Eventually(remote.Name).Should(Equal("Market"))

		again, _, err := b.GetObjectByID(ctx, start.ID(), world.KindRoom)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeIdenticalTo(remote))
	})

	It("follows renames and moves made on the other instance", func() {
		lamp, err := object.CreateItem(ctx, a, "lamp", god.ID(), god.ID())
		Expect(err).NotTo(HaveOccurred())
		remote, err := object.ImitateItem(ctx, b, lamp.ID())
		Expect(err).NotTo(HaveOccurred())

		_, err = lamp.Rename(ctx, "lantern")
		Expect(err).NotTo(HaveOccurred())
		_, err = lamp.Move(ctx, start.ID())
		Expect(err).NotTo(HaveOccurred())

		Eventually(remote.Name).Should(Equal("lantern"))
		Eventually(remote.Location).Should(Equal(start.ID()))
	})

	It("evicts remote copies of destroyed objects", func() {
		lamp, err := object.CreateItem(ctx, a, "lamp", god.ID(), start.ID())
		Expect(err).NotTo(HaveOccurred())
		_, err = object.ImitateItem(ctx, b, lamp.ID())
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Cache().Contains(lamp.ID())).To(BeTrue())

		Expect(lamp.Destroy(ctx)).To(Succeed())
		Eventually(func() bool { return b.Cache().Contains(lamp.ID()) }).Should(BeFalse())

		_, ok, err := b.GetObjectByID(ctx, lamp.ID(), world.KindItem)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("reloads scripts everywhere on a script cache invalidation", func() {
		script, err := object.CreateScript(ctx, a, "greet", god.ID(), world.EmptyID, "v1")
		Expect(err).NotTo(HaveOccurred())
		remote, err := object.ImitateScript(ctx, b, script.ID())
		Expect(err).NotTo(HaveOccurred())
		Expect(remote.Code()).To(Equal("v1"))

		Expect(a.Storage().SetScriptCode(ctx, script.ID(), "v2")).To(Succeed())
		_, err = a.InvalidateScriptCache(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(script.Code()).To(Equal("v2"))
		Eventually(remote.Code).Should(Equal("v2"))
	})

	It("relays player connectivity to the other instance's event stream", func() {
		events := b.Events().Subscribe()
		DeferCleanup(func() { b.Events().Unsubscribe(events) })

		Expect(a.PlayerConnected(ctx, god.ID(), core.NewULID())).To(Succeed())

		var ev core.WorldEvent
		Eventually(events).Should(Receive(&ev))
		Expect(ev.Name).To(Equal(world.EventConnect))
		Expect(ev.ObjectID).To(Equal(god.ID()))
		Expect(ev.Payload).To(Equal(world.PlayerConnectionResult{RemainingConnections: 1}))
	})

	It("stops applying remote updates after shutdown", func() {
		remote, err := object.ImitateRoom(ctx, b, start.ID())
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Shutdown(ctx)).To(Succeed())

		_, err = start.Rename(ctx, "Market")
		Expect(err).NotTo(HaveOccurred())
		Consistently(remote.Name).Should(Equal("Town Square"))
	})
}
