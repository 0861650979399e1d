package jobService

import (
	"VideoCropper/internal/api/job"
	jobRepository "VideoCropper/internal/api/job/repository"
	"VideoCropper/internal/cropper"
	"VideoCropper/pkg/taskqueue"
	"VideoCropper/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Cropper is the pipeline entrypoint the worker drives: one blocking run per
// job, returning the derived output location.
type Cropper interface {
	Run(ctx context.Context, inputURI string) (cropper.Meta, error)
}

type IJobService interface {
	SubmitJob(ctx context.Context, req job.SubmitJobRequest) (job.SubmitJobResponse, error)
	GetJobStatus(ctx context.Context, id string) (job.JobStatusResponse, error)
	ProcessJob(ctx context.Context, jobID string) error
	Cleanup(ctx context.Context) (job.CleanupResponse, error)
}

type jobService struct {
	log           *logrus.Logger
	jobRepository jobRepository.Repository
	cropper       Cropper
	taskQueue     taskqueue.ITaskQueue
	utils         utils.IUtils
}

func New(
	log *logrus.Logger,
	jobRepo jobRepository.Repository,
	videoCropper Cropper,
	taskQueue taskqueue.ITaskQueue,
	utilsInstance utils.IUtils,
) IJobService {
	return &jobService{
		log:           log,
		jobRepository: jobRepo,
		cropper:       videoCropper,
		taskQueue:     taskQueue,
		utils:         utilsInstance,
	}
}
