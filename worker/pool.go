package worker // import "pagemark/worker"

import (
	"pagemark/model"
)

type WorkPool interface {
	Push(job model.Job)
}

type Worker interface {
	Run(c <-chan model.Job)
}
